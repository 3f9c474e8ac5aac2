package steering

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/spatial"
	"github.com/zeusync/boidsim/internal/core/systems"
	"github.com/zeusync/boidsim/internal/core/systems/physics"
	"github.com/zeusync/boidsim/pkg/concurrent"
)

// Repel folds a repulsion from the single nearest other tracked entity into
// the agent's acceleration (or its push channel). The repulsion falls off with
// 1/distance and is capped in proportion to the agent's own steering effort.
//
// Repel reads only positions and the index and writes only a, so it may run
// for different agents concurrently.
func Repel(a *models.Agent, index spatial.Index, p Params) {
	a.Acceleration = a.Steering
	a.Push = mgl32.Vec3{}
	if !a.Tracked() {
		return
	}

	neighbor, ok := index.NearestOther(a.Position, a.ID)
	if !ok {
		return
	}

	vec := a.Position.Sub(neighbor.Position)
	var dir mgl32.Vec3
	if physics.IsZero(vec) {
		dir = separationAxis(a.ID, neighbor.ID)
	} else {
		dir = physics.SafeNormalize(vec)
	}
	l := max(vec.Len(), p.MinSeparation)

	minA := min(a.Steering.Len()*p.RepelCoef, p.MaxRepelAcceleration)
	repel := physics.ClampLength(dir.Mul(1/l), minA)

	if p.PushChannel {
		a.Push = repel.Mul(p.PushGain)
		return
	}
	a.Acceleration = a.Acceleration.Add(repel)
}

// separationAxis returns a unit direction on the ground plane for an exactly
// coincident pair. It depends only on the unordered pair, and the two members
// get opposite signs.
func separationAxis(self, other models.EntityID) mgl32.Vec3 {
	lo, hi := min(self, other), max(self, other)
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(lo))
	binary.LittleEndian.PutUint64(buf[8:], uint64(hi))
	angle := float64(xxhash.Sum64(buf[:])%65536) / 65536 * 2 * math.Pi

	axis := mgl32.Vec3{float32(math.Cos(angle)), 0, float32(math.Sin(angle))}
	if self == hi {
		return axis.Mul(-1)
	}
	return axis
}

// SoftCollisionSystem runs Repel for every agent as a parallel map.
type SoftCollisionSystem struct {
	systems.Base
	params  Params
	workers int
}

// NewSoftCollisionSystem creates the system; workers <= 0 uses GOMAXPROCS.
func NewSoftCollisionSystem(p Params, workers int) *SoftCollisionSystem {
	return &SoftCollisionSystem{
		Base: systems.Base{
			SystemName:     NameSoftCollision,
			Phase:          systems.PhaseUpdate,
			SystemPriority: systems.PriorityHigh,
		},
		params:  p,
		workers: workers,
	}
}

func (s *SoftCollisionSystem) Update(_ float64, world systems.World) error {
	agents := world.Agents()
	index := world.SpatialIndex()
	return concurrent.ParallelFor(context.Background(), len(agents), s.workers, func(i int) {
		Repel(&agents[i], index, s.params)
	})
}
