package steering

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/systems"
	"github.com/zeusync/boidsim/internal/core/systems/physics"
)

// Seek sets the steering acceleration that brings the agent to rest at its
// target in DecelerationTime, and the soft speed ceiling the integrator honours.
func Seek(a *models.Agent, p Params) {
	if !a.HasTarget {
		return
	}
	t := p.DecelerationTime
	dir := a.Target.Sub(a.Position)
	l := dir.Len()

	a.TargetSpeed = p.TargetSpeedDecay * physics.Clamp(l/t, 0, p.MaxVelocity)

	if physics.IsZero(dir) {
		a.Steering = mgl32.Vec3{}
		a.Acceleration = a.Steering
		return
	}

	// Signed speed along the direction of travel; a perpendicular velocity counts as approaching.
	v := a.Velocity.Len()
	if dir.Dot(a.Velocity) < 0 {
		v = -v
	}
	acc := (l - v*t) / (t * t)

	a.Steering = physics.ClampLength(dir.Mul(acc/l), p.MaxAcceleration)
	a.Acceleration = a.Steering
}

// SeekSystem runs Seek for every agent on the fixed step.
type SeekSystem struct {
	systems.Base
	params Params
}

func NewSeekSystem(p Params) *SeekSystem {
	return &SeekSystem{
		Base: systems.Base{
			SystemName:     NameSeek,
			Phase:          systems.PhaseFixedUpdate,
			SystemPriority: systems.PriorityNormal,
		},
		params: p,
	}
}

func (s *SeekSystem) Update(_ float64, world systems.World) error {
	agents := world.Agents()
	for i := range agents {
		Seek(&agents[i], s.params)
	}
	return nil
}
