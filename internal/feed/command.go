package feed

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zeusync/boidsim/internal/core/models"
	"github.com/zeusync/boidsim/internal/core/world"
)

// Actions accepted from renderer clients.
const (
	ActionSelect = "select"
	ActionClear  = "clear"
	ActionMove   = "move"
	ActionStop   = "stop"
)

// Command is an inbound client message. Text messages carry JSON and
// binary messages carry msgpack with the same field names.
type Command struct {
	Action string `json:"action" msgpack:"action"`

	// select: opposite ground corners of the drag rectangle.
	Corner1  *mgl32.Vec3 `json:"corner1,omitempty" msgpack:"corner1,omitempty"`
	Corner4  *mgl32.Vec3 `json:"corner4,omitempty" msgpack:"corner4,omitempty"`
	Additive bool        `json:"additive,omitempty" msgpack:"additive,omitempty"`

	// move: destination. move and stop default ids to the current selection.
	Point   *mgl32.Vec3       `json:"point,omitempty" msgpack:"point,omitempty"`
	IDs     []models.EntityID `json:"ids,omitempty" msgpack:"ids,omitempty"`
	Spacing float32           `json:"spacing,omitempty" msgpack:"spacing,omitempty"`
}

// DecodeCommand parses a websocket message.
func DecodeCommand(messageType int, data []byte) (Command, error) {
	var cmd Command
	var err error
	if messageType == websocket.BinaryMessage {
		err = msgpack.Unmarshal(data, &cmd)
	} else {
		err = json.Unmarshal(data, &cmd)
	}
	if err != nil {
		return cmd, fmt.Errorf("decode command: %w", err)
	}
	return cmd, nil
}

// WorldCommand validates c and converts it into a world mutation.
func (c Command) WorldCommand() (world.Command, error) {
	switch c.Action {
	case ActionSelect:
		if c.Corner1 == nil || c.Corner4 == nil {
			return nil, fmt.Errorf("%w: select needs corner1 and corner4", ErrMissingField)
		}
		c1, c4, additive := *c.Corner1, *c.Corner4, c.Additive
		return func(w *world.World) error {
			w.Select(c1, c4, additive)
			return nil
		}, nil

	case ActionClear:
		return func(w *world.World) error {
			w.ClearSelection()
			return nil
		}, nil

	case ActionMove:
		if c.Point == nil {
			return nil, fmt.Errorf("%w: move needs point", ErrMissingField)
		}
		point, ids, spacing := *c.Point, c.IDs, c.Spacing
		return func(w *world.World) error {
			if len(ids) == 0 {
				ids = w.Selection()
			}
			w.OrderMove(ids, point, spacing)
			return nil
		}, nil

	case ActionStop:
		ids := c.IDs
		return func(w *world.World) error {
			w.Stop(ids)
			return nil
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
}
