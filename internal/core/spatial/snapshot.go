package spatial

import (
	"iter"
	"time"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/systems/physics"
)

const dimensions = 3

var _ Index = (*Snapshot)(nil)

// TreeOptions tunes the R-tree built for each snapshot.
type TreeOptions struct {
	MinChildren int
	MaxChildren int
	// PointTolerance is the half-extent of the box stored for each point.
	// The tree ranks neighbours by distance to these boxes; nearest queries
	// re-rank the result by exact point distance.
	PointTolerance float64
}

// DefaultTreeOptions returns the branching used for moving bodies.
func DefaultTreeOptions() TreeOptions {
	return TreeOptions{MinChildren: 25, MaxChildren: 50, PointTolerance: 1e-3}
}

// spatialEntry adapts an Entry to rtreego.Spatial.
type spatialEntry struct {
	Entry
	rect rtreego.Rect
}

func (e *spatialEntry) Bounds() rtreego.Rect { return e.rect }

// Snapshot is an immutable spatial index over the entries captured at one rebuild.
type Snapshot struct {
	tree       *rtreego.Rtree
	size       int
	generation uint64
	builtAt    time.Time
}

// Empty returns a snapshot with no entries.
func Empty() *Snapshot {
	return &Snapshot{}
}

// Build bulk-loads a snapshot from entries. The entries slice is not retained.
func Build(entries []Entry, opts TreeOptions, generation uint64) *Snapshot {
	if len(entries) == 0 {
		return &Snapshot{generation: generation, builtAt: time.Now()}
	}
	if opts.MinChildren <= 0 || opts.MaxChildren < opts.MinChildren {
		opts = DefaultTreeOptions()
	}
	if opts.PointTolerance <= 0 {
		opts.PointTolerance = DefaultTreeOptions().PointTolerance
	}

	objs := make([]rtreego.Spatial, len(entries))
	for i := range entries {
		se := &spatialEntry{Entry: entries[i]}
		se.rect = rtreego.Point(physics.ToPoint(se.Position)).ToRect(opts.PointTolerance)
		objs[i] = se
	}

	return &Snapshot{
		tree:       rtreego.NewTree(dimensions, opts.MinChildren, opts.MaxChildren, objs...),
		size:       len(entries),
		generation: generation,
		builtAt:    time.Now(),
	}
}

// Generation counts rebuilds; the empty initial snapshot is generation 0.
func (s *Snapshot) Generation() uint64 { return s.generation }

// BuiltAt is the wall time the snapshot was built.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

func (s *Snapshot) Len() int { return s.size }

func (s *Snapshot) Nearest(p mgl32.Vec3) (Entry, bool) {
	if s.size == 0 {
		return Entry{}, false
	}
	obj := s.tree.NearestNeighbor(rtreego.Point(physics.ToPoint(p)))
	if obj == nil {
		return Entry{}, false
	}
	return s.refine(p, obj.(*spatialEntry).Entry, func(Entry) bool { return false }), true
}

func (s *Snapshot) NearestOther(p mgl32.Vec3, self models.EntityID) (Entry, bool) {
	if s.size == 0 {
		return Entry{}, false
	}
	// At most one entry carries self's id, so the two nearest always contain
	// the nearest other entity when one exists.
	objs := s.tree.NearestNeighbors(2, rtreego.Point(physics.ToPoint(p)))

	var (
		best  Entry
		bestD float32
		found bool
	)
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		e := obj.(*spatialEntry).Entry
		if e.ID == self {
			continue
		}
		d := e.Position.Sub(p).LenSqr()
		if !found || d < bestD {
			best, bestD, found = e, d, true
		}
	}
	if !found {
		return best, false
	}
	return s.refine(p, best, func(e Entry) bool { return e.ID == self }), true
}

// refine returns the entry closest to p by exact distance, starting from a
// candidate the tree ranked by box distance. Anything closer than the
// candidate lies in the cube of half-size |candidate - p| around p.
func (s *Snapshot) refine(p mgl32.Vec3, candidate Entry, skip func(Entry) bool) Entry {
	d := candidate.Position.Sub(p).Len()
	if d == 0 {
		return candidate
	}
	best, bestD := candidate, d*d
	ext := mgl32.Vec3{d, d, d}
	for _, e := range s.search(p.Sub(ext), p.Add(ext)) {
		if skip(e) {
			continue
		}
		if dd := e.Position.Sub(p).LenSqr(); dd < bestD {
			best, bestD = e, dd
		}
	}
	return best
}

func (s *Snapshot) WithinRadius(p mgl32.Vec3, r float32) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if s.size == 0 || r < 0 {
			return
		}
		ext := mgl32.Vec3{r, r, r}
		r2 := r * r
		for _, e := range s.search(p.Sub(ext), p.Add(ext)) {
			if e.Position.Sub(p).LenSqr() > r2 {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

func (s *Snapshot) WithinBox(min, max mgl32.Vec3) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if s.size == 0 {
			return
		}
		for _, e := range s.search(min, max) {
			if !yield(e) {
				return
			}
		}
	}
}

// search returns the entries whose stored box intersects the box spanned by a and b.
func (s *Snapshot) search(a, b mgl32.Vec3) []Entry {
	lo := physics.ToPoint(a)
	hi := physics.ToPoint(b)
	for i := range lo {
		if lo[i] > hi[i] {
			lo[i], hi[i] = hi[i], lo[i]
		}
	}
	bb, err := rtreego.NewRectFromPoints(lo, hi)
	if err != nil {
		return nil
	}

	objs := s.tree.SearchIntersect(bb)
	out := make([]Entry, 0, len(objs))
	for _, obj := range objs {
		e := obj.(*spatialEntry).Entry
		if !inside(e.Position, lo, hi) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func inside(p mgl32.Vec3, lo, hi []float64) bool {
	for i := 0; i < dimensions; i++ {
		c := float64(p[i])
		if c < lo[i] || c > hi[i] {
			return false
		}
	}
	return true
}
