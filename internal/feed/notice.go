package feed

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/events/bus"
	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/selection"
	"github.com/zeusync/boidsim/internal/core/world"
)

// Notice is a world event forwarded to clients between frames. Frames never
// carry an event field, which is how renderers tell the two apart.
type Notice struct {
	Event    string            `json:"event" msgpack:"event"`
	IDs      []models.EntityID `json:"ids,omitempty" msgpack:"ids,omitempty"`
	Point    *mgl32.Vec3       `json:"point,omitempty" msgpack:"point,omitempty"`
	Additive bool              `json:"additive,omitempty" msgpack:"additive,omitempty"`
}

// forwardedEvents are the bus event types a server relays.
var forwardedEvents = []string{bus.TypeSelectionChanged, bus.TypeMoveOrdered}

func noticeFor(e bus.Event) (Notice, bool) {
	switch d := e.Data().(type) {
	case selection.Changed:
		return Notice{Event: e.Type(), IDs: d.Selected, Additive: d.Additive}, true
	case world.MoveOrder:
		p := d.Point
		return Notice{Event: e.Type(), IDs: d.IDs, Point: &p}, true
	default:
		return Notice{}, false
	}
}
