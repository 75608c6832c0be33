// Package orient converts camera forward/up vectors into rotations and
// Euler angles for panorama baking and display.
//
// Two coordinate frames are involved. Reconstruction data uses a Z-up
// source frame; the render engine uses a Y-up frame:
//
//	source(x, y, z) -> render(x, z, -y)
//
// All rotation math in this package happens in the render frame.
package orient

import "gonum.org/v1/gonum/spatial/r3"

// ToRender converts a source-frame (Z-up) vector to the render frame (Y-up).
func ToRender(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Z, Z: -v.Y}
}

// ToSource converts a render-frame (Y-up) vector back to the source frame.
func ToSource(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: -v.Z, Z: v.Y}
}

// IdentityForward and IdentityUp are the source-frame direction written to
// a frame once its rotation has been baked. They map to the identity
// transform.
var (
	IdentityForward = r3.Vec{X: 0, Y: -1, Z: 0}
	IdentityUp      = r3.Vec{X: 0, Y: 0, Z: 1}
)

// WorldUp is the source-frame up hint used for legacy single-vector
// directions.
var WorldUp = r3.Vec{X: 0, Y: 0, Z: 1}

// IdentityDirection returns the identity forward/up pair.
func IdentityDirection() (forward, up r3.Vec) {
	return IdentityForward, IdentityUp
}
