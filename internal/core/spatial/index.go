package spatial

import (
	"iter"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/models"
)

// Kind tells agents and obstacles apart in query results.
type Kind uint8

const (
	KindAgent Kind = iota
	KindObstacle
)

// Entry is a tracked entity as captured at rebuild time.
type Entry struct {
	ID       models.EntityID
	Kind     Kind
	Position mgl32.Vec3
}

// Index is the read-only query surface of the spatial index.
// Implementations must be safe for concurrent readers.
type Index interface {
	// Nearest returns the tracked entity closest to p.
	Nearest(p mgl32.Vec3) (Entry, bool)
	// NearestOther returns the closest tracked entity to p whose id differs from self.
	NearestOther(p mgl32.Vec3, self models.EntityID) (Entry, bool)
	// WithinRadius yields every tracked entity whose distance to p is at most r.
	WithinRadius(p mgl32.Vec3, r float32) iter.Seq[Entry]
	// WithinBox yields every tracked entity inside the axis-aligned box spanned by two corners.
	WithinBox(min, max mgl32.Vec3) iter.Seq[Entry]
	// Len returns the number of indexed entities.
	Len() int
}
