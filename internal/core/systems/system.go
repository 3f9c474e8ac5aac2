package systems

import (
	"time"

	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/spatial"
)

// System represents one stage of the per-tick simulation pipeline.
type System interface {
	// Identity

	Name() string

	// Configuration

	ExecutionPhase() ExecutionPhase
	Priority() Priority
	// Dependencies names systems that must run earlier in the same tick.
	Dependencies() []string

	// Execution

	// Update advances the system by deltaTime seconds. Fixed-update systems
	// always receive the fixed step.
	Update(deltaTime float64, world World) error
}

// World is the state a system reads and writes during a tick.
type World interface {
	// Agents returns the live agent records; systems mutate them in place.
	Agents() []models.Agent
	// Agent looks up a live agent by id, returning nil for unknown ids and obstacles.
	Agent(id models.EntityID) *models.Agent
	Obstacles() []models.Obstacle
	// SpatialIndex returns the snapshot current for this tick. It may lag
	// positions by up to one rebuild period.
	SpatialIndex() spatial.Index
	// TotalTime is the simulated time elapsed since start.
	TotalTime() time.Duration
}

// Priority orders systems inside a phase; higher runs first.
type Priority uint16

const (
	PriorityLowest  Priority = 200
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// ExecutionPhase defines when a system runs within a tick.
type ExecutionPhase uint8

const (
	// PhaseFixedUpdate runs zero or more times per tick on the fixed step.
	PhaseFixedUpdate ExecutionPhase = iota
	PhaseUpdate
	PhasePostUpdate
	PhaseLateUpdate
)

func (p ExecutionPhase) String() string {
	switch p {
	case PhaseFixedUpdate:
		return "fixed_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhaseLateUpdate:
		return "late_update"
	default:
		return "unknown"
	}
}

// Metrics provides runtime metrics for a system.
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
}

// Base carries the static description of a system. Embed it and implement Update.
type Base struct {
	SystemName     string
	Phase          ExecutionPhase
	SystemPriority Priority
	DependsOn      []string
}

func (b Base) Name() string                   { return b.SystemName }
func (b Base) ExecutionPhase() ExecutionPhase { return b.Phase }
func (b Base) Priority() Priority             { return b.SystemPriority }
func (b Base) Dependencies() []string         { return b.DependsOn }
