package geo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a Cartesian 3-vector. Samples are stored as arrays so kernels can
// index components; arithmetic goes through gonum's r3.
type Vec3 [3]float64

// R3 returns a as an r3.Vec.
func (a Vec3) R3() r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

// FromR3 returns v as a Vec3.
func FromR3(v r3.Vec) Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// Add returns a + b.
func (a Vec3) Add(b Vec3) Vec3 {
	return FromR3(r3.Add(a.R3(), b.R3()))
}

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return FromR3(r3.Sub(a.R3(), b.R3()))
}

// Scale returns k·a.
func (a Vec3) Scale(k float64) Vec3 {
	return FromR3(r3.Scale(k, a.R3()))
}

// Dot returns a·b.
func (a Vec3) Dot(b Vec3) float64 {
	return r3.Dot(a.R3(), b.R3())
}

// Cross returns a×b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return FromR3(r3.Cross(a.R3(), b.R3()))
}

// Norm returns |a|.
func (a Vec3) Norm() float64 {
	return r3.Norm(a.R3())
}

// IsFinite reports whether every component is finite.
func (a Vec3) IsFinite() bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MulVec returns m·v.
func MulVec(m *r3.Mat, v Vec3) Vec3 {
	return FromR3(m.MulVec(v.R3()))
}

// MulVecTrans returns mᵀ·v.
func MulVecTrans(m *r3.Mat, v Vec3) Vec3 {
	return FromR3(m.MulVecTrans(v.R3()))
}

// Flatten returns the points as one slice of length 3·len(v).
func Flatten(v []Vec3) []float64 {
	out := make([]float64, 0, 3*len(v))
	for _, p := range v {
		out = append(out, p[0], p[1], p[2])
	}
	return out
}

// cloneVecs returns a copy of v.
func cloneVecs(v []Vec3) []Vec3 {
	return append([]Vec3(nil), v...)
}
