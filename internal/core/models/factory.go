package models

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/boidsim/internal/core/systems/physics"
)

// AgentOption customises an agent built by NewAgent.
type AgentOption func(*Agent)

// WithTarget assigns the initial target.
func WithTarget(p mgl32.Vec3) AgentOption {
	return func(a *Agent) { a.SetTarget(p) }
}

// WithVelocity sets the initial velocity.
func WithVelocity(v mgl32.Vec3) AgentOption {
	return func(a *Agent) { a.Velocity = v }
}

// WithCollision overrides the default soft collision marker.
func WithCollision(c CollisionMarker) AgentOption {
	return func(a *Agent) { a.Collision = c }
}

// WithBobPhase sets the per-agent bob phase offset.
func WithBobPhase(phase float32) AgentOption {
	return func(a *Agent) { a.BobPhase = phase }
}

// NewAgent is the single factory for agents. Agents are soft-colliding and
// therefore tracked unless an option says otherwise.
func NewAgent(id EntityID, position mgl32.Vec3, opts ...AgentOption) (Agent, error) {
	if id == 0 {
		return Agent{}, ErrInvalidID
	}
	a := Agent{
		ID:          id,
		Position:    position,
		Orientation: mgl32.QuatIdent(),
		Collision:   CollisionSoft,
	}
	for _, opt := range opts {
		opt(&a)
	}

	if !physics.IsFinite(a.Position) || !physics.IsFinite(a.Velocity) || !physics.IsFinite(a.Target) {
		return Agent{}, fmt.Errorf("agent %d: %w", id, ErrNonFinite)
	}
	return a, nil
}

// NewObstacle builds a static wall. The normal is normalised; a zero normal is rejected.
func NewObstacle(id EntityID, position, normal mgl32.Vec3) (Obstacle, error) {
	if id == 0 {
		return Obstacle{}, ErrInvalidID
	}
	if !physics.IsFinite(position) || !physics.IsFinite(normal) {
		return Obstacle{}, fmt.Errorf("obstacle %d: %w", id, ErrNonFinite)
	}
	if physics.IsZero(normal) {
		return Obstacle{}, fmt.Errorf("obstacle %d: %w", id, ErrZeroNormal)
	}
	return Obstacle{
		id:       id,
		position: position,
		normal:   physics.SafeNormalize(normal),
	}, nil
}
