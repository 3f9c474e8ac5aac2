package world

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/events/bus"
	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/observability/log"
	"github.com/zeusync/boidsim/internal/core/selection"
	"github.com/zeusync/boidsim/internal/core/spatial"
	"github.com/zeusync/boidsim/internal/core/systems"
	"github.com/zeusync/boidsim/internal/core/systems/steering"
)

var (
	ErrNilManager   = errors.New("world needs a systems manager")
	ErrNilRebuilder = errors.New("world needs a spatial rebuilder")
	ErrUnknownAgent = errors.New("unknown agent")
)

// Command mutates the world on the simulation thread.
type Command func(w *World) error

// MoveOrder is the payload of bus.TypeMoveOrdered events.
type MoveOrder struct {
	IDs   []models.EntityID
	Point mgl32.Vec3
}

// Stats is a point-in-time view of the world counters.
type Stats struct {
	Ticks           uint64
	FixedSteps      uint64
	Agents          int
	Obstacles       int
	IndexGeneration uint64
	IndexEntries    int
	IndexAge        time.Duration
	DroppedTime     time.Duration
	// WallHits counts hard collision resolutions; zero when that system is
	// not registered.
	WallHits uint64
}

// World is the arena: it owns every agent and obstacle and advances them
// with the systems manager. All methods except Enqueue must be called from
// the simulation thread.
type World struct {
	agents    []models.Agent
	byID      map[models.EntityID]int
	obstacles []models.Obstacle
	nextID    models.EntityID

	store     *spatial.Store
	rebuilder *spatial.Rebuilder
	index     *spatial.Snapshot
	manager   *systems.Manager
	selector  *selection.Selector
	events    bus.EventBus
	logger    log.Log

	formationSpacing float32

	elapsed time.Duration
	ticks   uint64

	mu       sync.Mutex
	commands []Command
}

type options struct {
	selectionHeight  float32
	formationSpacing float32
	events           bus.EventBus
	logger           log.Log
}

// Option configures a World.
type Option func(*options)

// WithSelectionHeight sets the vertical half-extent of box selections.
func WithSelectionHeight(h float32) Option {
	return func(o *options) { o.selectionHeight = h }
}

// WithFormationSpacing sets the distance between agents sharing a move order.
func WithFormationSpacing(s float32) Option {
	return func(o *options) { o.formationSpacing = s }
}

func WithEvents(events bus.EventBus) Option {
	return func(o *options) { o.events = events }
}

func WithLogger(logger log.Log) Option {
	return func(o *options) { o.logger = logger }
}

// New creates an empty world reading its index from store.
func New(manager *systems.Manager, store *spatial.Store, rebuilder *spatial.Rebuilder, opts ...Option) (*World, error) {
	if manager == nil {
		return nil, ErrNilManager
	}
	if rebuilder == nil {
		return nil, ErrNilRebuilder
	}
	o := options{selectionHeight: 1, formationSpacing: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNop()
	}

	return &World{
		byID:             make(map[models.EntityID]int),
		nextID:           1,
		store:            store,
		rebuilder:        rebuilder,
		index:            store.Load(),
		manager:          manager,
		selector:         selection.NewSelector(o.selectionHeight, o.events, o.logger),
		events:           o.events,
		logger:           o.logger.With(log.String("component", "world")),
		formationSpacing: o.formationSpacing,
	}, nil
}

// systems.World

func (w *World) Agents() []models.Agent       { return w.agents }
func (w *World) Obstacles() []models.Obstacle { return w.obstacles }
func (w *World) TotalTime() time.Duration     { return w.elapsed }

// SpatialIndex is the snapshot pinned for the current tick.
func (w *World) SpatialIndex() spatial.Index { return w.index }

// Agent returns the live record for id, or nil. The pointer is valid until
// the next spawn.
func (w *World) Agent(id models.EntityID) *models.Agent {
	i, ok := w.byID[id]
	if !ok {
		return nil
	}
	return &w.agents[i]
}

// Ticks is the number of completed Steps.
func (w *World) Ticks() uint64 { return w.ticks }

// Selection returns the ids of the selected agents.
func (w *World) Selection() []models.EntityID { return w.selector.Selected() }

// SpawnAgent creates an agent with the next free id.
func (w *World) SpawnAgent(position mgl32.Vec3, opts ...models.AgentOption) (models.EntityID, error) {
	id := w.nextID
	a, err := models.NewAgent(id, position, opts...)
	if err != nil {
		return 0, fmt.Errorf("spawn agent: %w", err)
	}
	w.nextID++
	w.byID[id] = len(w.agents)
	w.agents = append(w.agents, a)
	return id, nil
}

// SpawnObstacle creates an obstacle with the next free id.
func (w *World) SpawnObstacle(position, normal mgl32.Vec3) (models.EntityID, error) {
	id := w.nextID
	o, err := models.NewObstacle(id, position, normal)
	if err != nil {
		return 0, fmt.Errorf("spawn obstacle: %w", err)
	}
	w.nextID++
	w.obstacles = append(w.obstacles, o)
	return id, nil
}

// Enqueue schedules cmd for the start of the next Step. It is safe for
// concurrent use.
func (w *World) Enqueue(cmd Command) {
	w.mu.Lock()
	w.commands = append(w.commands, cmd)
	w.mu.Unlock()
}

// Step advances the simulation by dt: queued commands run first, then the
// systems, then a capture is handed to the rebuilder when one is due.
func (w *World) Step(dt time.Duration) error {
	w.drain()

	w.index = w.store.Load()
	w.elapsed += dt
	if err := w.manager.Update(dt, w); err != nil {
		return fmt.Errorf("tick %d: %w", w.ticks, err)
	}
	w.ticks++

	if w.rebuilder.Due() {
		w.rebuilder.Submit(w.CaptureEntries())
	}
	return nil
}

// RebuildIndexNow builds a snapshot from the current positions and installs it.
func (w *World) RebuildIndexNow() *spatial.Snapshot {
	snap := w.rebuilder.RebuildNow(w.CaptureEntries())
	w.index = snap
	return snap
}

// CaptureEntries copies the positions of every tracked entity.
func (w *World) CaptureEntries() []spatial.Entry {
	entries := make([]spatial.Entry, 0, len(w.agents)+len(w.obstacles))
	for i := range w.agents {
		a := &w.agents[i]
		if !a.Tracked() {
			continue
		}
		entries = append(entries, spatial.Entry{ID: a.ID, Kind: spatial.KindAgent, Position: a.Position})
	}
	for _, o := range w.obstacles {
		entries = append(entries, spatial.Entry{ID: o.ID(), Kind: spatial.KindObstacle, Position: o.Position()})
	}
	return entries
}

// Select replaces (or extends) the selection with the agents inside the box.
func (w *World) Select(corner1, corner4 mgl32.Vec3, additive bool) []models.EntityID {
	return w.selector.Select(w, corner1, corner4, additive)
}

// ClearSelection drops the selection.
func (w *World) ClearSelection() {
	w.selector.Clear(w)
}

// OrderMove retargets ids to a square formation centred on point. Unknown
// ids are skipped; the number of retargeted agents is returned.
func (w *World) OrderMove(ids []models.EntityID, point mgl32.Vec3, spacing float32) int {
	if spacing <= 0 {
		spacing = w.formationSpacing
	}
	known := make([]models.EntityID, 0, len(ids))
	for _, id := range ids {
		if _, ok := w.byID[id]; ok {
			known = append(known, id)
		}
	}
	if len(known) == 0 {
		return 0
	}

	for k, slot := range Formation(len(known), point, spacing) {
		w.Agent(known[k]).SetTarget(slot)
	}

	if w.events != nil {
		if err := w.events.Publish(bus.NewEvent(bus.TypeMoveOrdered, "world", MoveOrder{IDs: known, Point: point})); err != nil {
			w.logger.Warn("Move order handler failed", log.Error(err))
		}
	}
	return len(known)
}

// OrderSelectedMove retargets the current selection.
func (w *World) OrderSelectedMove(point mgl32.Vec3) int {
	return w.OrderMove(w.selector.Selected(), point, w.formationSpacing)
}

// Stop clears the target of each listed agent, or of the selection when ids
// is empty. Agents keep drifting on their current velocity. The number of
// stopped agents is returned.
func (w *World) Stop(ids []models.EntityID) int {
	if len(ids) == 0 {
		ids = w.selector.Selected()
	}
	n := 0
	for _, id := range ids {
		a := w.Agent(id)
		if a == nil || !a.HasTarget {
			continue
		}
		a.ClearTarget()
		n++
	}
	return n
}

// Formation lays n slots out row-major on a square grid centred on point.
func Formation(n int, point mgl32.Vec3, spacing float32) []mgl32.Vec3 {
	if n <= 0 {
		return nil
	}
	side := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + side - 1) / side
	halfCol, halfRow := float32(side-1)/2, float32(rows-1)/2
	slots := make([]mgl32.Vec3, n)
	for k := range slots {
		row, col := k/side, k%side
		slots[k] = point.Add(mgl32.Vec3{
			(float32(col) - halfCol) * spacing,
			0,
			(float32(row) - halfRow) * spacing,
		})
	}
	return slots
}

// Stats reports the world counters.
func (w *World) Stats() Stats {
	idx := w.store.Load()
	s := Stats{
		Ticks:           w.ticks,
		FixedSteps:      w.manager.FixedSteps(),
		Agents:          len(w.agents),
		Obstacles:       len(w.obstacles),
		IndexGeneration: idx.Generation(),
		IndexEntries:    idx.Len(),
		DroppedTime:     w.manager.DroppedTime(),
	}
	if sys, ok := w.manager.GetSystem(steering.NameHardCollision); ok {
		if h, ok := sys.(interface{ Hits() uint64 }); ok {
			s.WallHits = h.Hits()
		}
	}
	if !idx.BuiltAt().IsZero() {
		s.IndexAge = time.Since(idx.BuiltAt())
	}
	return s
}

func (w *World) drain() {
	w.mu.Lock()
	pending := w.commands
	w.commands = nil
	w.mu.Unlock()

	for _, cmd := range pending {
		if err := cmd(w); err != nil {
			w.logger.Warn("Command failed", log.Error(err))
		}
	}
}
