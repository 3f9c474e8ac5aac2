package steering

import (
	"github.com/zeusync/boidsim/internal/config"
)

// Params are the pipeline constants, in float32 seconds and world units.
type Params struct {
	MaxVelocity     float32
	MaxAcceleration float32
	// DecelerationTime is T in the seeking law a = (l - v·T) / T².
	DecelerationTime float32
	TargetSpeedDecay float32
	BrownianVelocity float32

	RepelCoef            float32
	MaxRepelAcceleration float32
	MinSeparation        float32
	PushChannel          bool
	PushGain             float32

	InteractionRadius float32

	BobAmplitude float32
	BobFreqCoef  float32
	BobFreqMin   float32
}

// ParamsFromConfig converts the steering section of the configuration.
func ParamsFromConfig(c config.SteeringConfig) Params {
	return Params{
		MaxVelocity:          c.MaxVelocity,
		MaxAcceleration:      c.MaxAcceleration,
		DecelerationTime:     float32(c.DecelerationTime.Seconds()),
		TargetSpeedDecay:     c.TargetSpeedDecay,
		BrownianVelocity:     c.BrownianVelocity,
		RepelCoef:            c.RepelCoef,
		MaxRepelAcceleration: c.MaxRepelAcceleration,
		MinSeparation:        c.MinSeparation,
		PushChannel:          c.PushChannel,
		PushGain:             c.PushGain,
		InteractionRadius:    c.InteractionRadius,
		BobAmplitude:         c.BobAmplitude,
		BobFreqCoef:          c.BobFreqCoef,
		BobFreqMin:           c.BobFreqMin,
	}
}

// DefaultParams returns the parameters of config.Default.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Steering)
}
