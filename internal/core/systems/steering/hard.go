package steering

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/spatial"
	"github.com/zeusync/boidsim/internal/core/systems"
	"github.com/zeusync/boidsim/internal/core/systems/physics"
)

// ResolveWall applies a fully inelastic wall response against a unit normal.
// The velocity loses its normal component. The acceleration loses its normal
// component but keeps its magnitude, so the agent slides along the wall
// instead of stalling; with nothing tangential left it becomes zero.
func ResolveWall(a *models.Agent, normal mgl32.Vec3) {
	a.Velocity = physics.Reject(a.Velocity, normal)

	m := a.Acceleration.Len()
	a.Acceleration = physics.SafeNormalize(physics.Reject(a.Acceleration, normal)).Mul(m)

	a.Push = physics.Reject(a.Push, normal)
}

// ResolveObstacle applies ResolveWall to every agent the index places within
// radius of the obstacle and returns how many were affected.
func ResolveObstacle(o models.Obstacle, index spatial.Index, radius float32, lookup func(models.EntityID) *models.Agent) int {
	n := 0
	for e := range index.WithinRadius(o.Position(), radius) {
		if e.Kind != spatial.KindAgent {
			continue
		}
		a := lookup(e.ID)
		if a == nil {
			continue
		}
		ResolveWall(a, o.Normal())
		n++
	}
	return n
}

// HardCollisionSystem enforces obstacle walls after soft repulsion.
type HardCollisionSystem struct {
	systems.Base
	params Params
	hits   uint64
}

func NewHardCollisionSystem(p Params) *HardCollisionSystem {
	return &HardCollisionSystem{
		Base: systems.Base{
			SystemName:     NameHardCollision,
			Phase:          systems.PhaseUpdate,
			SystemPriority: systems.PriorityNormal,
			DependsOn:      []string{NameSoftCollision},
		},
		params: p,
	}
}

func (s *HardCollisionSystem) Update(_ float64, world systems.World) error {
	index := world.SpatialIndex()
	for _, o := range world.Obstacles() {
		s.hits += uint64(ResolveObstacle(o, index, s.params.InteractionRadius, world.Agent))
	}
	return nil
}

// Hits counts wall resolutions since creation.
func (s *HardCollisionSystem) Hits() uint64 { return s.hits }
