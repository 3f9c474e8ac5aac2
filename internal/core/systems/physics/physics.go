package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vector helpers over mgl32. None of them normalize a zero vector: a zero
// input yields a zero output so degenerate geometry contributes nothing.

// Epsilon is the squared-length threshold below which a vector is treated as zero.
const Epsilon float32 = 1e-12

// Up is the world vertical axis.
var Up = mgl32.Vec3{0, 1, 0}

// IsZero reports whether v is (numerically) the zero vector.
func IsZero(v mgl32.Vec3) bool { return v.LenSqr() <= Epsilon }

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// SafeNormalize returns v scaled to unit length, or the zero vector when v is zero.
func SafeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l2 := v.LenSqr()
	if l2 <= Epsilon {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / float32(math.Sqrt(float64(l2))))
}

// ClampLength limits the length of v to max, keeping its direction.
// A non-positive max yields the zero vector.
func ClampLength(v mgl32.Vec3, max float32) mgl32.Vec3 {
	if max <= 0 {
		return mgl32.Vec3{}
	}
	l2 := v.LenSqr()
	if l2 <= max*max {
		return v
	}
	return v.Mul(max / float32(math.Sqrt(float64(l2))))
}

// Project returns the component of v along onto. Projecting onto the zero
// vector yields zero.
func Project(v, onto mgl32.Vec3) mgl32.Vec3 {
	d := onto.LenSqr()
	if d <= Epsilon {
		return mgl32.Vec3{}
	}
	return onto.Mul(v.Dot(onto) / d)
}

// Reject returns v with its component along normal removed.
func Reject(v, normal mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(Project(v, normal))
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	return mgl32.Clamp(x, lo, hi)
}

// ToPoint converts v to the float64 coordinates used by spatial structures.
func ToPoint(v mgl32.Vec3) []float64 {
	return []float64{float64(v[0]), float64(v[1]), float64(v[2])}
}
