package spatial

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/models"
)

func gridEntries(side int) []Entry {
	out := make([]Entry, 0, side*side)
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			out = append(out, Entry{
				ID:       models.EntityID(i*side + j + 1),
				Kind:     KindAgent,
				Position: mgl32.Vec3{float32(i), 0, float32(j)},
			})
		}
	}
	return out
}

func BenchmarkBuild(b *testing.B) {
	for _, side := range []int{32, 99} {
		entries := gridEntries(side)
		b.Run(fmt.Sprintf("entries=%d", len(entries)), func(b *testing.B) {
			b.ReportAllocs()
			for n := 0; n < b.N; n++ {
				_ = Build(entries, DefaultTreeOptions(), uint64(n))
			}
		})
	}
}

func BenchmarkNearestOther(b *testing.B) {
	s := Build(gridEntries(99), DefaultTreeOptions(), 1)
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		id := models.EntityID(n%(99*99) + 1)
		p := mgl32.Vec3{float32((id - 1) / 99), 0, float32((id - 1) % 99)}
		_, _ = s.NearestOther(p, id)
	}
}
