package steering

import (
	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/systems"
	"github.com/zeusync/boidsim/internal/core/systems/physics"
)

// Integrate advances one agent by dt seconds with semi-implicit Euler.
// Acceleration is clamped to the agent's soft ceiling plus the brownian slack,
// then the push channel is applied under the global MaxVelocity ceiling.
func Integrate(a *models.Agent, dt float32, p Params) {
	a.Velocity = physics.ClampLength(a.Velocity.Add(a.Acceleration.Mul(dt)), a.TargetSpeed+p.BrownianVelocity)
	a.Velocity = physics.ClampLength(a.Velocity.Add(a.Push.Mul(dt)), p.MaxVelocity)
	a.Position = a.Position.Add(a.Velocity.Mul(dt))
}

// IntegratorSystem integrates every agent with the measured frame time.
type IntegratorSystem struct {
	systems.Base
	params Params
}

func NewIntegratorSystem(p Params) *IntegratorSystem {
	return &IntegratorSystem{
		Base: systems.Base{
			SystemName:     NameIntegrator,
			Phase:          systems.PhasePostUpdate,
			SystemPriority: systems.PriorityNormal,
			DependsOn:      []string{NameHardCollision},
		},
		params: p,
	}
}

func (s *IntegratorSystem) Update(deltaTime float64, world systems.World) error {
	dt := float32(deltaTime)
	agents := world.Agents()
	for i := range agents {
		Integrate(&agents[i], dt, s.params)
	}
	return nil
}
