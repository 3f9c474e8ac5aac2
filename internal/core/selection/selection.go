package selection

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/events/bus"
	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/observability/log"
	"github.com/zeusync/boidsim/internal/core/spatial"
	"github.com/zeusync/boidsim/internal/core/systems/physics"
)

// Arena is the part of the world a selection reads and flags.
type Arena interface {
	SpatialIndex() spatial.Index
	Agent(id models.EntityID) *models.Agent
}

// Changed is the payload of bus.TypeSelectionChanged events.
type Changed struct {
	Selected []models.EntityID
	Additive bool
}

// Selector keeps the player's current agent selection.
// It is not safe for concurrent use; it runs on the simulation thread.
type Selector struct {
	height   float32
	selected []models.EntityID
	events   bus.EventBus
	logger   log.Log
}

// NewSelector creates a selector whose boxes extend height above and below
// the dragged rectangle. events and logger may be nil.
func NewSelector(height float32, events bus.EventBus, logger log.Log) *Selector {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Selector{
		height: height,
		events: events,
		logger: logger.With(log.String("component", "selection")),
	}
}

// Select flags every agent the index places inside the box spanned by two
// opposite corners of a ground rectangle. Unless additive, the previous
// selection is dropped first. It returns the resulting selection.
func (s *Selector) Select(arena Arena, corner1, corner4 mgl32.Vec3, additive bool) []models.EntityID {
	if !additive {
		s.clear(arena)
	}

	lo, hi := bounds(corner1, corner4)
	lo = lo.Sub(physics.Up.Mul(s.height))
	hi = hi.Add(physics.Up.Mul(s.height))

	for e := range arena.SpatialIndex().WithinBox(lo, hi) {
		if e.Kind != spatial.KindAgent {
			continue
		}
		a := arena.Agent(e.ID)
		if a == nil || a.Selected {
			continue
		}
		a.Selected = true
		s.selected = append(s.selected, e.ID)
	}
	slices.Sort(s.selected)

	s.publish(additive)
	return s.Selected()
}

// Clear drops the selection.
func (s *Selector) Clear(arena Arena) {
	if len(s.selected) == 0 {
		return
	}
	s.clear(arena)
	s.publish(false)
}

// Selected returns a copy of the selected ids in ascending order.
func (s *Selector) Selected() []models.EntityID {
	return slices.Clone(s.selected)
}

// Len is the number of selected agents.
func (s *Selector) Len() int { return len(s.selected) }

func (s *Selector) clear(arena Arena) {
	for _, id := range s.selected {
		if a := arena.Agent(id); a != nil {
			a.Selected = false
		}
	}
	s.selected = s.selected[:0]
}

func (s *Selector) publish(additive bool) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(bus.NewEvent(bus.TypeSelectionChanged, "selection", Changed{
		Selected: s.Selected(),
		Additive: additive,
	}))
	if err != nil {
		s.logger.Warn("Selection handler failed", log.Error(err))
	}
}

func bounds(a, b mgl32.Vec3) (lo, hi mgl32.Vec3) {
	for i := range a {
		lo[i], hi[i] = min(a[i], b[i]), max(a[i], b[i])
	}
	return lo, hi
}
