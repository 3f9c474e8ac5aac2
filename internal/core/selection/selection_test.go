package selection

import (
	"errors"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/boidsim/internal/core/events/bus"
	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/observability/log"
	"github.com/zeusync/boidsim/internal/core/spatial"
)

type arena struct {
	agents []models.Agent
	index  spatial.Index
}

func (a *arena) SpatialIndex() spatial.Index { return a.index }
func (a *arena) Agent(id models.EntityID) *models.Agent {
	for i := range a.agents {
		if a.agents[i].ID == id {
			return &a.agents[i]
		}
	}
	return nil
}

// newArena places agents 1..n on a unit grid along X and an obstacle at the origin.
func newArena(t *testing.T, n int) *arena {
	t.Helper()
	a := &arena{}
	var entries []spatial.Entry
	for i := 0; i < n; i++ {
		ag, err := models.NewAgent(models.EntityID(i+1), mgl32.Vec3{float32(i), 0, 0})
		require.NoError(t, err)
		a.agents = append(a.agents, ag)
		entries = append(entries, spatial.Entry{ID: ag.ID, Kind: spatial.KindAgent, Position: ag.Position})
	}
	entries = append(entries, spatial.Entry{ID: 1000, Kind: spatial.KindObstacle, Position: mgl32.Vec3{0.5, 0, 0}})
	a.index = spatial.Build(entries, spatial.DefaultTreeOptions(), 1)
	return a
}

func TestSelectBox(t *testing.T) {
	a := newArena(t, 10)
	s := NewSelector(1, nil, nil)

	got := s.Select(a, mgl32.Vec3{2.5, 0, -1}, mgl32.Vec3{5.5, 0, 1}, false)
	assert.Equal(t, []models.EntityID{4, 5, 6}, got)
	for _, ag := range a.agents {
		assert.Equal(t, ag.ID >= 4 && ag.ID <= 6, ag.Selected, "agent %d", ag.ID)
	}
}

func TestSelectCornersInAnyOrder(t *testing.T) {
	a := newArena(t, 10)
	s := NewSelector(1, nil, nil)

	got := s.Select(a, mgl32.Vec3{5.5, 0, 1}, mgl32.Vec3{2.5, 0, -1}, false)
	assert.Equal(t, []models.EntityID{4, 5, 6}, got)
}

func TestSelectSkipsObstacles(t *testing.T) {
	a := newArena(t, 2)
	s := NewSelector(1, nil, nil)

	got := s.Select(a, mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{3, 0, 1}, false)
	assert.Equal(t, []models.EntityID{1, 2}, got)
}

func TestSelectReplacesUnlessAdditive(t *testing.T) {
	a := newArena(t, 10)
	s := NewSelector(1, nil, nil)

	s.Select(a, mgl32.Vec3{-0.5, 0, -1}, mgl32.Vec3{1.5, 0, 1}, false)
	got := s.Select(a, mgl32.Vec3{7.5, 0, -1}, mgl32.Vec3{8.5, 0, 1}, false)
	assert.Equal(t, []models.EntityID{9}, got)
	assert.False(t, a.Agent(1).Selected)

	got = s.Select(a, mgl32.Vec3{-0.5, 0, -1}, mgl32.Vec3{0.5, 0, 1}, true)
	assert.Equal(t, []models.EntityID{1, 9}, got)
	assert.Equal(t, 2, s.Len())
}

func TestSelectHeight(t *testing.T) {
	a := newArena(t, 3)
	a.agents[1].Position = mgl32.Vec3{1, 5, 0}
	a.index = spatial.Build([]spatial.Entry{
		{ID: 1, Kind: spatial.KindAgent, Position: a.agents[0].Position},
		{ID: 2, Kind: spatial.KindAgent, Position: a.agents[1].Position},
		{ID: 3, Kind: spatial.KindAgent, Position: a.agents[2].Position},
	}, spatial.DefaultTreeOptions(), 2)
	s := NewSelector(1, nil, nil)

	got := s.Select(a, mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{3, 0, 1}, false)
	assert.Equal(t, []models.EntityID{1, 3}, got)
}

func TestSelectPublishes(t *testing.T) {
	events := bus.New()
	var last Changed
	calls := 0
	_, err := events.Subscribe(bus.TypeSelectionChanged, func(e bus.Event) error {
		last = e.Data().(Changed)
		calls++
		return nil
	})
	require.NoError(t, err)

	a := newArena(t, 4)
	s := NewSelector(1, events, nil)
	s.Select(a, mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{1.5, 0, 1}, false)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []models.EntityID{1, 2}, last.Selected)

	s.Clear(a)
	assert.Equal(t, 2, calls)
	assert.Empty(t, last.Selected)
	assert.False(t, a.Agent(1).Selected)

	s.Clear(a)
	assert.Equal(t, 2, calls, "clearing an empty selection is silent")
}

type warnRecorder struct {
	mu    sync.Mutex
	warns []string
}

func (r *warnRecorder) Debug(string, ...log.Field) {}
func (r *warnRecorder) Info(string, ...log.Field)  {}
func (r *warnRecorder) Error(string, ...log.Field) {}
func (r *warnRecorder) With(...log.Field) log.Log  { return r }
func (r *warnRecorder) Enabled(log.Level) bool     { return true }
func (r *warnRecorder) Sync() error                { return nil }
func (r *warnRecorder) Warn(msg string, _ ...log.Field) {
	r.mu.Lock()
	r.warns = append(r.warns, msg)
	r.mu.Unlock()
}

func TestSelectLogsFailingHandler(t *testing.T) {
	events := bus.New()
	_, err := events.Subscribe(bus.TypeSelectionChanged, func(bus.Event) error {
		return errors.New("renderer gone")
	})
	require.NoError(t, err)

	rec := &warnRecorder{}
	a := newArena(t, 3)
	s := NewSelector(1, events, rec)

	got := s.Select(a, mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{3, 0, 1}, false)
	assert.Len(t, got, 3, "a failing handler does not undo the selection")
	assert.Equal(t, []string{"Selection handler failed"}, rec.warns)
}
