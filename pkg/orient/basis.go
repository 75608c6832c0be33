package orient

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateBasis is returned when forward and up do not span a plane:
// one of them is zero or non-finite, or they are parallel.
var ErrDegenerateBasis = errors.New("degenerate basis: forward and up are parallel or zero")

// DegenerateEpsilon is the minimum |up x forward| accepted by BuildBasis.
const DegenerateEpsilon = 1e-6

// Basis is an orthonormal right-handed frame in render coordinates.
type Basis struct {
	Right   r3.Vec
	Up      r3.Vec
	Forward r3.Vec
}

// BuildBasis builds a basis from source-frame forward and up vectors.
// The up vector does not need to be orthogonal to forward; it is corrected.
func BuildBasis(forward, up r3.Vec) (Basis, error) {
	return BuildRenderBasis(ToRender(forward), ToRender(up))
}

// BuildRenderBasis builds a basis from render-frame forward and up vectors.
//
//	right = unit(up x forward)
//	up'   = unit(forward x right)
func BuildRenderBasis(forward, up r3.Vec) (Basis, error) {
	if !finite(forward) || !finite(up) {
		return Basis{}, fmt.Errorf("%w: non-finite input", ErrDegenerateBasis)
	}
	// a raw norm may overflow to +Inf here, which still passes
	if r3.Norm(forward) < DegenerateEpsilon || r3.Norm(up) < DegenerateEpsilon {
		return Basis{}, fmt.Errorf("%w: zero-length input", ErrDegenerateBasis)
	}
	// work on rescaled copies so huge but finite inputs cannot overflow
	_, fv := rescale(forward)
	us, uv := rescale(up)
	f := r3.Scale(1/r3.Norm(fv), fv)

	// the threshold applies to the raw |up x forward|
	side := r3.Cross(uv, f)
	if n := us * r3.Norm(side); n < DegenerateEpsilon {
		return Basis{}, fmt.Errorf("%w: |up x forward| = %g", ErrDegenerateBasis, n)
	}
	right := r3.Unit(side)
	correctedUp := r3.Unit(r3.Cross(f, right))

	b := Basis{Right: right, Up: correctedUp, Forward: f}
	if !b.valid() {
		return Basis{}, fmt.Errorf("%w: basis is not orthonormal", ErrDegenerateBasis)
	}
	return b, nil
}

// rescale splits v into a scale and a vector whose largest component has
// magnitude 1. A zero vector returns scale 0.
func rescale(v r3.Vec) (float64, r3.Vec) {
	m := max(math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z))
	if m == 0 {
		return 0, v
	}
	return m, r3.Scale(1/m, v)
}

func (b Basis) valid() bool {
	for _, v := range [3]r3.Vec{b.Right, b.Up, b.Forward} {
		if !finite(v) || math.Abs(r3.Norm(v)-1) > 1e-9 {
			return false
		}
	}
	return true
}

// Mat returns the basis as a rotation matrix with columns (right, up, forward).
func (b Basis) Mat() *r3.Mat {
	return r3.NewMat([]float64{
		b.Right.X, b.Up.X, b.Forward.X,
		b.Right.Y, b.Up.Y, b.Forward.Y,
		b.Right.Z, b.Up.Z, b.Forward.Z,
	})
}

// Handedness returns right . (up x forward), which is +1 for a right-handed
// orthonormal basis.
func (b Basis) Handedness() float64 {
	return r3.Dot(b.Right, r3.Cross(b.Up, b.Forward))
}

func finite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
