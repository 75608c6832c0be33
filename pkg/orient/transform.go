package orient

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is an immutable 3x3 rotation in render coordinates, stored
// row-major. Its columns are the (right, up, forward) axes.
//
// The zero value is not a rotation; use Identity.
type Transform struct {
	m [9]float64
}

// Identity returns the transform that leaves every direction unchanged.
func Identity() Transform {
	return Transform{m: [9]float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}}
}

// FromBasis returns the rotation whose columns are the basis axes.
func FromBasis(b Basis) Transform {
	return Transform{m: [9]float64{
		b.Right.X, b.Up.X, b.Forward.X,
		b.Right.Y, b.Up.Y, b.Forward.Y,
		b.Right.Z, b.Up.Z, b.Forward.Z,
	}}
}

// FromMat copies a 3x3 r3 matrix into a Transform.
func FromMat(m *r3.Mat) Transform {
	var t Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.m[i*3+j] = m.At(i, j)
		}
	}
	return t
}

// FromVectors builds the rotation for source-frame forward/up vectors.
func FromVectors(forward, up r3.Vec) (Transform, error) {
	b, err := BuildBasis(forward, up)
	if err != nil {
		return Transform{}, err
	}
	return FromBasis(b), nil
}

// At returns the element at row i, column j.
func (t Transform) At(i, j int) float64 {
	return t.m[i*3+j]
}

// Mat returns a fresh r3 matrix holding the transform.
func (t Transform) Mat() *r3.Mat {
	vals := t.m
	return r3.NewMat(vals[:])
}

// Basis returns the columns of the transform as a Basis.
func (t Transform) Basis() Basis {
	return Basis{
		Right:   r3.Vec{X: t.m[0], Y: t.m[3], Z: t.m[6]},
		Up:      r3.Vec{X: t.m[1], Y: t.m[4], Z: t.m[7]},
		Forward: r3.Vec{X: t.m[2], Y: t.m[5], Z: t.m[8]},
	}
}

// Transpose returns the inverse rotation.
func (t Transform) Transpose() Transform {
	m := t.m
	return Transform{m: [9]float64{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}}
}

// Mul returns t * other.
func (t Transform) Mul(other Transform) Transform {
	var out Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += t.m[i*3+k] * other.m[k*3+j]
			}
			out.m[i*3+j] = s
		}
	}
	return out
}

// Apply rotates v.
func (t Transform) Apply(v r3.Vec) r3.Vec {
	m := &t.m
	return r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// ApplyInverse rotates v by the transpose of t.
func (t Transform) ApplyInverse(v r3.Vec) r3.Vec {
	m := &t.m
	return r3.Vec{
		X: m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		Y: m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		Z: m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

// Det returns the determinant, +1 for a proper rotation.
func (t Transform) Det() float64 {
	return t.Mat().Det()
}

// IsIdentity reports whether t is the identity within tol.
func (t Transform) IsIdentity(tol float64) bool {
	return t.ApproxEqual(Identity(), tol)
}

// ApproxEqual reports whether every element of t and other differ by at
// most tol. NaN elements never compare equal.
func (t Transform) ApproxEqual(other Transform, tol float64) bool {
	for i := range t.m {
		if !(math.Abs(t.m[i]-other.m[i]) <= tol) {
			return false
		}
	}
	return true
}
