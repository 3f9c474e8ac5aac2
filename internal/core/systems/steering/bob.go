package steering

import (
	"math"

	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/systems"
	"github.com/zeusync/boidsim/internal/core/systems/physics"
)

// Bob sets the cosmetic vertical offset from speed and the per-agent phase.
func Bob(a *models.Agent, elapsed float64, p Params) {
	freq := physics.Clamp(a.Speed()*p.BobFreqCoef, p.BobFreqMin, 4*p.BobFreqMin)
	a.BobOffset = p.BobAmplitude * float32(math.Sin(float64(freq)*(float64(a.BobPhase)+elapsed)))
}

type BobSystem struct {
	systems.Base
	params Params
}

func NewBobSystem(p Params) *BobSystem {
	return &BobSystem{
		Base: systems.Base{
			SystemName:     NameBob,
			Phase:          systems.PhaseLateUpdate,
			SystemPriority: systems.PriorityLow,
		},
		params: p,
	}
}

func (s *BobSystem) Update(_ float64, world systems.World) error {
	elapsed := world.TotalTime().Seconds()
	agents := world.Agents()
	for i := range agents {
		Bob(&agents[i], elapsed, s.params)
	}
	return nil
}
