package systems

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/zeusync/boidsim/internal/core/observability/log"
)

var (
	ErrSystemExists      = errors.New("system already registered")
	ErrSystemNotFound    = errors.New("system not found")
	ErrMissingDependency = errors.New("system dependency not registered")
	ErrDependencyOrder   = errors.New("system dependency runs later than its dependent")
	ErrInvalidFixedStep  = errors.New("fixed step must be positive")
)

// maxFixedStepsPerUpdate bounds catch-up work after a long frame; leftover time is dropped.
const maxFixedStepsPerUpdate = 16

// Manager runs registered systems in phase order, driving fixed-update
// systems from an accumulator so their step is independent of the frame rate.
type Manager struct {
	systems   []System
	byName    map[string]System
	metrics   map[string]*Metrics
	fixedStep time.Duration

	accumulator time.Duration
	fixedSteps  uint64
	updates     uint64
	dropped     time.Duration

	logger log.Log
}

// NewManager creates a manager with the given fixed step.
func NewManager(fixedStep time.Duration, logger log.Log) (*Manager, error) {
	if fixedStep <= 0 {
		return nil, ErrInvalidFixedStep
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		byName:    make(map[string]System),
		metrics:   make(map[string]*Metrics),
		fixedStep: fixedStep,
		logger:    logger.With(log.String("component", "systems")),
	}, nil
}

// RegisterSystem adds a system and re-sorts the execution order.
func (m *Manager) RegisterSystem(s System) error {
	if _, exists := m.byName[s.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
	}
	m.byName[s.Name()] = s
	m.metrics[s.Name()] = &Metrics{}
	m.systems = append(m.systems, s)
	slices.SortStableFunc(m.systems, func(a, b System) int {
		if a.ExecutionPhase() != b.ExecutionPhase() {
			return int(a.ExecutionPhase()) - int(b.ExecutionPhase())
		}
		return int(b.Priority()) - int(a.Priority())
	})
	return nil
}

// GetSystem returns a registered system by name.
func (m *Manager) GetSystem(name string) (System, bool) {
	s, ok := m.byName[name]
	return s, ok
}

// ExecutionOrder lists system names in the order a tick runs them.
func (m *Manager) ExecutionOrder() []string {
	out := make([]string, len(m.systems))
	for i, s := range m.systems {
		out[i] = s.Name()
	}
	return out
}

// ValidateDependencies checks that every dependency is registered and
// ordered before its dependent.
func (m *Manager) ValidateDependencies() error {
	position := make(map[string]int, len(m.systems))
	for i, s := range m.systems {
		position[s.Name()] = i
	}
	var errs []error
	for i, s := range m.systems {
		for _, dep := range s.Dependencies() {
			j, ok := position[dep]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("%w: %s needs %s", ErrMissingDependency, s.Name(), dep))
			case j >= i:
				errs = append(errs, fmt.Errorf("%w: %s needs %s", ErrDependencyOrder, s.Name(), dep))
			}
		}
	}
	return errors.Join(errs...)
}

// Update runs one tick of deltaTime wall time: the pending fixed steps first,
// then the variable phases in order. System errors are joined and returned;
// a failing system does not stop the rest of the tick.
func (m *Manager) Update(deltaTime time.Duration, world World) error {
	if deltaTime < 0 {
		deltaTime = 0
	}
	m.updates++
	m.accumulator += deltaTime

	var errs []error
	steps := 0
	for m.accumulator >= m.fixedStep {
		if steps == maxFixedStepsPerUpdate {
			m.dropped += m.accumulator
			m.logger.Warn("Fixed update falling behind, dropping time",
				log.Duration("dropped", m.accumulator))
			m.accumulator = 0
			break
		}
		m.accumulator -= m.fixedStep
		steps++
		m.fixedSteps++
		errs = append(errs, m.runPhase(PhaseFixedUpdate, m.fixedStep.Seconds(), world)...)
	}

	dt := deltaTime.Seconds()
	for _, phase := range []ExecutionPhase{PhaseUpdate, PhasePostUpdate, PhaseLateUpdate} {
		errs = append(errs, m.runPhase(phase, dt, world)...)
	}
	return errors.Join(errs...)
}

// FixedStep is the period of fixed-update systems.
func (m *Manager) FixedStep() time.Duration { return m.fixedStep }

// FixedSteps counts executed fixed steps.
func (m *Manager) FixedSteps() uint64 { return m.fixedSteps }

// DroppedTime is the simulated fixed-step time discarded while catching up.
func (m *Manager) DroppedTime() time.Duration { return m.dropped }

// SystemMetrics returns a copy of a system's metrics.
func (m *Manager) SystemMetrics(name string) (Metrics, bool) {
	mt, ok := m.metrics[name]
	if !ok {
		return Metrics{}, false
	}
	return *mt, true
}

func (m *Manager) runPhase(phase ExecutionPhase, dt float64, world World) []error {
	var errs []error
	for _, s := range m.systems {
		if s.ExecutionPhase() != phase {
			continue
		}
		start := time.Now()
		err := s.Update(dt, world)
		m.record(s.Name(), time.Since(start), err)
		if err != nil {
			m.logger.Error("System update failed", log.String("system", s.Name()), log.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errs
}

func (m *Manager) record(name string, took time.Duration, err error) {
	mt := m.metrics[name]
	mt.ExecutionCount++
	mt.TotalExecutionTime += took
	mt.AverageExecutionTime = mt.TotalExecutionTime / time.Duration(mt.ExecutionCount)
	if took > mt.MaxExecutionTime {
		mt.MaxExecutionTime = took
	}
	if err != nil {
		mt.ErrorCount++
		mt.LastError = err
	}
}
