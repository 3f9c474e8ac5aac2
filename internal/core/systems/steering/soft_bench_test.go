package steering

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/models"
)

func BenchmarkSoftCollision(b *testing.B) {
	for _, side := range []int{32, 99} {
		b.Run(fmt.Sprintf("agents=%d", side*side), func(b *testing.B) {
			w := &testWorld{}
			for i := 0; i < side; i++ {
				for j := 0; j < side; j++ {
					a, err := models.NewAgent(models.EntityID(i*side+j+1), mgl32.Vec3{float32(i), 0, float32(j)})
					if err != nil {
						b.Fatal(err)
					}
					a.Steering = mgl32.Vec3{1, 0, 0}
					w.agents = append(w.agents, a)
				}
			}
			w.index = indexOf(w.agents)
			s := NewSoftCollisionSystem(DefaultParams(), 0)

			b.ReportAllocs()
			b.ResetTimer()
			for n := 0; n < b.N; n++ {
				if err := s.Update(0.016, w); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
