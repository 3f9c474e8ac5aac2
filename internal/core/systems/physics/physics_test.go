package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSafeNormalizeZero(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{}, SafeNormalize(mgl32.Vec3{}))
	n := SafeNormalize(mgl32.Vec3{3, 0, 4})
	assert.InDelta(t, 1.0, n.Len(), 1e-6)
	assert.InDelta(t, 0.6, n.X(), 1e-6)
}

func TestClampLength(t *testing.T) {
	v := ClampLength(mgl32.Vec3{10, 0, 0}, 5)
	assert.InDelta(t, 5.0, v.Len(), 1e-5)

	short := mgl32.Vec3{1, 1, 0}
	assert.Equal(t, short, ClampLength(short, 5))
	assert.Equal(t, mgl32.Vec3{}, ClampLength(short, 0))
}

func TestProjectAndReject(t *testing.T) {
	v := mgl32.Vec3{3, 2, -1}
	n := mgl32.Vec3{1, 0, 0}

	assert.Equal(t, mgl32.Vec3{3, 0, 0}, Project(v, n))
	assert.Equal(t, mgl32.Vec3{0, 2, -1}, Reject(v, n))
	assert.Equal(t, mgl32.Vec3{}, Project(v, mgl32.Vec3{}))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(mgl32.Vec3{1, 2, 3}))
	assert.False(t, IsFinite(mgl32.Vec3{float32(math.NaN()), 0, 0}))
	assert.False(t, IsFinite(mgl32.Vec3{0, float32(math.Inf(1)), 0}))
}
