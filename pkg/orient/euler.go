package orient

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// RotationOrder is the intrinsic Euler order shared with the viewer:
// yaw about Y, then pitch about X, then roll about Z.
//
//	M = Ry(yaw) * Rx(pitch) * Rz(roll)
const RotationOrder = "YXZ"

// gimbalThreshold is the |m12| above which pitch is treated as +-90 degrees.
const gimbalThreshold = 1 - 1e-7

// Angles are Euler angles in degrees.
type Angles struct {
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// String returns the angles formatted to two decimals.
func (a Angles) String() string {
	return fmt.Sprintf("yaw=%.2f° pitch=%.2f° roll=%.2f°", a.Yaw, a.Pitch, a.Roll)
}

// IsZero reports whether all angles are within tol degrees of zero.
func (a Angles) IsZero(tol float64) bool {
	return math.Abs(a.Yaw) <= tol && math.Abs(a.Pitch) <= tol && math.Abs(a.Roll) <= tol
}

// Decompose extracts YXZ Euler angles from a rotation.
//
// At gimbal lock (pitch = +-90) yaw and roll describe the same axis. Roll is
// then fixed to zero and the whole remaining rotation is reported as yaw.
func Decompose(t Transform) Angles {
	m12 := clamp(t.At(1, 2), -1, 1)
	pitch := math.Asin(-m12)

	var yaw, roll float64
	if math.Abs(m12) < gimbalThreshold {
		yaw = math.Atan2(t.At(0, 2), t.At(2, 2))
		roll = math.Atan2(t.At(1, 0), t.At(1, 1))
	} else {
		yaw = math.Atan2(-t.At(2, 0), t.At(0, 0))
		roll = 0
	}

	return Angles{
		Yaw:   degrees(yaw),
		Pitch: degrees(pitch),
		Roll:  degrees(roll),
	}
}

// GimbalLocked reports whether t sits at pitch +-90 degrees, where
// Decompose applies its roll = 0 tie-break.
func (t Transform) GimbalLocked() bool {
	return math.Abs(t.At(1, 2)) >= gimbalThreshold
}

// Reconstruct builds the rotation for YXZ Euler angles. It is the inverse
// of Decompose away from gimbal lock.
func Reconstruct(a Angles) Transform {
	return FromMat(r3.Rotation(a.Quaternion()).Mat())
}

// Quaternion returns the unit quaternion for the angles in the same order
// as Reconstruct.
func (a Angles) Quaternion() quat.Number {
	var qy, qx, qz quat.Number
	qy.Jmag, qy.Real = math.Sincos(radians(a.Yaw) / 2)
	qx.Imag, qx.Real = math.Sincos(radians(a.Pitch) / 2)
	qz.Kmag, qz.Real = math.Sincos(radians(a.Roll) / 2)
	return quat.Mul(qy, quat.Mul(qx, qz))
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
func radians(deg float64) float64 { return deg * math.Pi / 180 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
