package models

import (
	"github.com/go-gl/mathgl/mgl32"
)

// EntityID identifies an agent or an obstacle. Zero is never assigned.
type EntityID uint64

// CollisionMarker selects how an entity takes part in collision resolution.
// Any marker other than CollisionNone makes the entity tracked by the spatial index.
type CollisionMarker uint8

const (
	CollisionNone CollisionMarker = iota
	CollisionSoft
	CollisionHard
)

func (c CollisionMarker) String() string {
	switch c {
	case CollisionSoft:
		return "soft"
	case CollisionHard:
		return "hard"
	default:
		return "none"
	}
}

// Agent is the fixed-layout state record of a single boid.
type Agent struct {
	ID          EntityID
	Position    mgl32.Vec3
	Orientation mgl32.Quat

	Velocity mgl32.Vec3
	// Acceleration is the steering acceleration consumed by the integrator:
	// target seeking plus soft repulsion (unless the push channel is in use).
	Acceleration mgl32.Vec3
	// Steering is the last output of the target-seeking controller.
	Steering mgl32.Vec3
	// Push is the repulsion-only channel used by the push variant of the pipeline.
	Push        mgl32.Vec3
	TargetSpeed float32

	Target    mgl32.Vec3
	HasTarget bool

	Collision CollisionMarker

	// BobPhase decorrelates the cosmetic bobbing of agents; BobOffset is its
	// current vertical output and never feeds back into physics.
	BobPhase  float32
	BobOffset float32

	Selected bool
}

// Tracked reports whether the agent is indexed by the spatial index.
func (a *Agent) Tracked() bool { return a.Collision != CollisionNone }

// RenderPosition is the position with the cosmetic bob offset applied.
func (a *Agent) RenderPosition() mgl32.Vec3 {
	return a.Position.Add(mgl32.Vec3{0, a.BobOffset, 0})
}

// Speed returns |velocity|.
func (a *Agent) Speed() float32 { return a.Velocity.Len() }

// SetTarget assigns the point the agent steers toward.
func (a *Agent) SetTarget(p mgl32.Vec3) {
	a.Target = p
	a.HasTarget = true
}

// ClearTarget stops target seeking; the agent keeps its current velocity.
func (a *Agent) ClearTarget() {
	a.HasTarget = false
	a.TargetSpeed = 0
	a.Steering = mgl32.Vec3{}
	a.Acceleration = mgl32.Vec3{}
}

// Obstacle is a static planar wall. It is immutable after creation.
type Obstacle struct {
	id       EntityID
	position mgl32.Vec3
	normal   mgl32.Vec3
}

func (o Obstacle) ID() EntityID               { return o.id }
func (o Obstacle) Position() mgl32.Vec3       { return o.position }
func (o Obstacle) Normal() mgl32.Vec3         { return o.normal }
func (o Obstacle) Collision() CollisionMarker { return CollisionHard }
