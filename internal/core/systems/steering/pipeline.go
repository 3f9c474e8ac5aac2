package steering

import (
	"github.com/zeusync/boidsim/internal/core/systems"
)

const (
	NameSeek          = "target_seeking"
	NameSoftCollision = "soft_collision"
	NameHardCollision = "hard_collision"
	NameIntegrator    = "integrator"
	NameBob           = "bob"
)

// Pipeline returns the systems of one simulation tick.
func Pipeline(p Params, workers int) []systems.System {
	return []systems.System{
		NewSeekSystem(p),
		NewSoftCollisionSystem(p, workers),
		NewHardCollisionSystem(p),
		NewIntegratorSystem(p),
		NewBobSystem(p),
	}
}

// Register adds the pipeline to m and validates its ordering.
func Register(m *systems.Manager, p Params, workers int) error {
	for _, s := range Pipeline(p, workers) {
		if err := m.RegisterSystem(s); err != nil {
			return err
		}
	}
	return m.ValidateDependencies()
}
