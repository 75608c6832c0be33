package collection

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/panobake/pkg/orient"
)

// Vec3 is a JSON {x, y, z} triple.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// R3 converts v to a gonum vector.
func (v Vec3) R3() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// VecOf converts a gonum vector to Vec3.
func VecOf(v r3.Vec) Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// Direction is the orientation stored on a frame. It is one of
// LegacyDirection or FullOrientation, resolved once at load time.
type Direction interface {
	// Orientation returns source-frame forward and up vectors.
	Orientation() (forward, up r3.Vec)
	isDirection()
}

// LegacyDirection is a bare forward vector; up is the world Z axis.
type LegacyDirection struct {
	Vector Vec3
}

func (d LegacyDirection) Orientation() (forward, up r3.Vec) {
	return d.Vector.R3(), orient.WorldUp
}

func (LegacyDirection) isDirection() {}

func (d LegacyDirection) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Vector)
}

// FullOrientation carries explicit forward and up vectors.
type FullOrientation struct {
	Forward Vec3 `json:"forward"`
	Up      Vec3 `json:"up"`
}

func (d FullOrientation) Orientation() (forward, up r3.Vec) {
	return d.Forward.R3(), d.Up.R3()
}

func (FullOrientation) isDirection() {}

// IdentityOrientation is the direction written to baked frames.
func IdentityOrientation() FullOrientation {
	forward, up := orient.IdentityDirection()
	return FullOrientation{Forward: VecOf(forward), Up: VecOf(up)}
}

// Transform builds the render-frame rotation for d.
func Transform(d Direction) (orient.Transform, error) {
	if d == nil {
		return orient.Transform{}, ErrMissingDirection
	}
	return orient.FromVectors(d.Orientation())
}

// decodeDirection picks the variant from the JSON shape.
func decodeDirection(raw json.RawMessage) (Direction, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("direction: %w", err)
	}
	if fields == nil {
		return nil, nil
	}

	if _, ok := fields["forward"]; ok {
		var full FullOrientation
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, fmt.Errorf("direction: %w", err)
		}
		if _, ok := fields["up"]; !ok {
			full.Up = VecOf(orient.WorldUp)
		}
		return full, nil
	}

	for _, k := range []string{"x", "y", "z"} {
		if _, ok := fields[k]; !ok {
			return nil, fmt.Errorf("direction: missing %q", k)
		}
	}
	var v Vec3
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("direction: %w", err)
	}
	return LegacyDirection{Vector: v}, nil
}
