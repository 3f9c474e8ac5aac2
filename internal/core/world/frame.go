package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/models"
)

// AgentState is the render view of one agent.
type AgentState struct {
	ID       models.EntityID `json:"id" msgpack:"id"`
	Position mgl32.Vec3      `json:"p" msgpack:"p"`
	Velocity mgl32.Vec3      `json:"v" msgpack:"v"`
	Target   *mgl32.Vec3     `json:"t,omitempty" msgpack:"t,omitempty"`
	Selected bool            `json:"sel,omitempty" msgpack:"sel,omitempty"`
}

// ObstacleState is the render view of one obstacle.
type ObstacleState struct {
	ID       models.EntityID `json:"id" msgpack:"id"`
	Position mgl32.Vec3      `json:"p" msgpack:"p"`
	Normal   mgl32.Vec3      `json:"n" msgpack:"n"`
}

// Frame is an immutable copy of the world after a tick.
type Frame struct {
	Tick      uint64          `json:"tick" msgpack:"tick"`
	Time      float64         `json:"time" msgpack:"time"`
	Agents    []AgentState    `json:"agents" msgpack:"agents"`
	Obstacles []ObstacleState `json:"obstacles" msgpack:"obstacles"`
}

// Frame copies the render state. Positions include the bob offset.
func (w *World) Frame() *Frame {
	f := &Frame{
		Tick:      w.ticks,
		Time:      w.elapsed.Seconds(),
		Agents:    make([]AgentState, len(w.agents)),
		Obstacles: make([]ObstacleState, len(w.obstacles)),
	}
	for i := range w.agents {
		a := &w.agents[i]
		s := AgentState{
			ID:       a.ID,
			Position: a.RenderPosition(),
			Velocity: a.Velocity,
			Selected: a.Selected,
		}
		if a.HasTarget {
			t := a.Target
			s.Target = &t
		}
		f.Agents[i] = s
	}
	for i, o := range w.obstacles {
		f.Obstacles[i] = ObstacleState{ID: o.ID(), Position: o.Position(), Normal: o.Normal()}
	}
	return f
}
