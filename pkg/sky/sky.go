// Package sky is the viewer side of the orientation contract: given the
// state of one panorama it returns the rotation a sky renderer applies.
//
// Angles follow orient.RotationOrder. A renderer that applies them in any
// other order shows a different view from the one that was baked.
package sky

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/panobake/pkg/orient"
)

// RenderState is everything the viewer needs to orient one panorama. It is
// passed by value per draw; nothing here is shared between frames.
type RenderState struct {
	Forward     r3.Vec
	Up          r3.Vec
	Baked       bool
	Calibration orient.Calibration
}

// NewRenderState builds a state with the default calibration.
func NewRenderState(forward, up r3.Vec, baked bool) RenderState {
	return RenderState{
		Forward:     forward,
		Up:          up,
		Baked:       baked,
		Calibration: orient.DefaultCalibration(),
	}
}

// WithCalibration returns a copy of s using c.
func (s RenderState) WithCalibration(c orient.Calibration) RenderState {
	s.Calibration = c
	return s
}

// Rotation returns the engine angles for s. Baked panoramas already carry
// their rotation in the pixels and get zero.
func Rotation(s RenderState) (orient.Angles, error) {
	if s.Baked {
		return orient.Angles{}, nil
	}
	t, err := orient.FromVectors(s.Forward, s.Up)
	if err != nil {
		return orient.Angles{}, err
	}
	return s.Calibration.Apply(orient.Decompose(t)), nil
}

// Transform returns the render-frame rotation the viewer ends up applying
// after undoing the calibration on the engine side.
func Transform(s RenderState) (orient.Transform, error) {
	a, err := Rotation(s)
	if err != nil {
		return orient.Transform{}, err
	}
	if s.Baked {
		return orient.Identity(), nil
	}
	return orient.Reconstruct(s.Calibration.Remove(a)), nil
}
