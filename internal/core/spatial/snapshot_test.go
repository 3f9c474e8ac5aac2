package spatial

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/boidsim/internal/core/models"
)

func lineEntries(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = Entry{ID: models.EntityID(i + 1), Kind: KindAgent, Position: mgl32.Vec3{float32(i), 0, 0}}
	}
	return out
}

func ids(seq func(func(Entry) bool)) []models.EntityID {
	var out []models.EntityID
	for e := range seq {
		out = append(out, e.ID)
	}
	slices.Sort(out)
	return out
}

func TestEmptySnapshot(t *testing.T) {
	s := Empty()

	_, ok := s.Nearest(mgl32.Vec3{})
	assert.False(t, ok)
	_, ok = s.NearestOther(mgl32.Vec3{}, 1)
	assert.False(t, ok)
	assert.Empty(t, ids(s.WithinRadius(mgl32.Vec3{}, 10)))
	assert.Empty(t, ids(s.WithinBox(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})))
	assert.Zero(t, s.Len())
}

func TestNearest(t *testing.T) {
	s := Build(lineEntries(10), DefaultTreeOptions(), 1)
	require.Equal(t, 10, s.Len())

	e, ok := s.Nearest(mgl32.Vec3{4.2, 0, 0})
	require.True(t, ok)
	assert.Equal(t, models.EntityID(5), e.ID)
	assert.Equal(t, mgl32.Vec3{4, 0, 0}, e.Position)
}

func TestNearestOtherSkipsSelf(t *testing.T) {
	s := Build(lineEntries(10), DefaultTreeOptions(), 1)

	e, ok := s.NearestOther(mgl32.Vec3{4, 0, 0}, 5)
	require.True(t, ok)
	assert.Contains(t, []models.EntityID{4, 6}, e.ID)

	single := Build(lineEntries(1), DefaultTreeOptions(), 1)
	_, ok = single.NearestOther(mgl32.Vec3{}, 1)
	assert.False(t, ok)
}

func TestWithinRadiusIsExact(t *testing.T) {
	s := Build(lineEntries(10), DefaultTreeOptions(), 1)

	got := ids(s.WithinRadius(mgl32.Vec3{5, 0, 0}, 1.5))
	assert.Equal(t, []models.EntityID{5, 6, 7}, got)

	// Five entries fall inside the search box; only one is within the radius.
	got = ids(s.WithinRadius(mgl32.Vec3{6, 1.9, 0}, 2))
	assert.Equal(t, []models.EntityID{7}, got)
}

func TestWithinBoxNormalisesCorners(t *testing.T) {
	s := Build(lineEntries(10), DefaultTreeOptions(), 1)

	got := ids(s.WithinBox(mgl32.Vec3{3.5, 1, 1}, mgl32.Vec3{1.5, -1, -1}))
	assert.Equal(t, []models.EntityID{3, 4}, got)
}

func TestEarlyStop(t *testing.T) {
	s := Build(lineEntries(10), DefaultTreeOptions(), 1)
	n := 0
	for range s.WithinRadius(mgl32.Vec3{}, 100) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestConcurrentReaders(t *testing.T) {
	s := Build(lineEntries(500), DefaultTreeOptions(), 1)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				p := mgl32.Vec3{float32((i*7 + w) % 500), 0, 0}
				e, ok := s.NearestOther(p, models.EntityID(int(p[0])+1))
				if assert.True(t, ok) {
					assert.InDelta(t, 1.0, e.Position.Sub(p).Len(), 1e-4)
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestStoreSwap(t *testing.T) {
	store := NewStore()
	require.NotNil(t, store.Load())
	assert.Zero(t, store.Load().Generation())

	next := Build(lineEntries(3), DefaultTreeOptions(), 7)
	prev := store.Swap(next)
	assert.Zero(t, prev.Generation())
	assert.Same(t, next, store.Load())
	assert.Equal(t, uint64(1), store.Swaps())

	store.Swap(nil)
	assert.Same(t, next, store.Load())
}

func TestNearestMatchesExactDistance(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	entries := make([]Entry, 400)
	for i := range entries {
		entries[i] = Entry{
			ID:       models.EntityID(i + 1),
			Kind:     KindAgent,
			Position: mgl32.Vec3{rng.Float32() * 20, 0, rng.Float32() * 20},
		}
	}
	// Coarse boxes make box ranking and point ranking disagree often.
	s := Build(entries, TreeOptions{MinChildren: 4, MaxChildren: 8, PointTolerance: 0.5}, 1)

	exact := func(p mgl32.Vec3, self models.EntityID) float32 {
		best := float32(math.MaxFloat32)
		for _, e := range entries {
			if e.ID != self {
				best = min(best, e.Position.Sub(p).Len())
			}
		}
		return best
	}

	for i := 0; i < 2000; i++ {
		p := mgl32.Vec3{rng.Float32() * 20, 0, rng.Float32() * 20}
		e, ok := s.Nearest(p)
		require.True(t, ok)
		require.InDelta(t, exact(p, 0), e.Position.Sub(p).Len(), 1e-5)

		self := entries[i%len(entries)]
		o, ok := s.NearestOther(self.Position, self.ID)
		require.True(t, ok)
		require.NotEqual(t, self.ID, o.ID)
		require.InDelta(t, exact(self.Position, self.ID), o.Position.Sub(self.Position).Len(), 1e-5)
	}
}
