package project

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/spatialmath"
)

// Viewpoint is a camera: intrinsics, extrinsics (position + unit-quaternion orientation),
// image dimensions, and solve-time flags. The quaternion magnitude invariant (‖q‖=1) is
// enforced by the quat-unit-norm residual provider during optimization and by a
// renormalization step after every accepted LM iteration; Viewpoint itself never enforces
// it synchronously.
type Viewpoint struct {
	Name string

	Intrinsics  spatialmath.Intrinsics
	Position    r3.Vector
	Orientation spatialmath.Quaternion

	ImageWidth, ImageHeight int

	IsPoseLocked   bool
	EnabledInSolve bool
	IsZReflected   bool

	// ImagePoints and VanishingLines are non-owning references into the arena.
	ImagePoints    []EntityRef
	VanishingLines []EntityRef
}

// NewViewpoint creates an enabled, unlocked Viewpoint at the identity pose with the given
// intrinsics and image dimensions.
func NewViewpoint(name string, intr spatialmath.Intrinsics, width, height int) *Viewpoint {
	return &Viewpoint{
		Name:           name,
		Intrinsics:     intr,
		Orientation:    spatialmath.IdentityQuaternion(),
		ImageWidth:     width,
		ImageHeight:    height,
		EnabledInSolve: true,
	}
}

// Pose returns the viewpoint's extrinsics as a spatialmath.Pose.
func (v *Viewpoint) Pose() spatialmath.Pose {
	return spatialmath.NewPose(v.Position, v.Orientation)
}

// SetPose updates the viewpoint's position and orientation.
func (v *Viewpoint) SetPose(pose spatialmath.Pose) {
	v.Position = pose.Position
	v.Orientation = pose.Orientation
}

// AddImagePoint records a non-owning reference to an ImagePoint observed by this viewpoint.
func (v *Viewpoint) AddImagePoint(ref EntityRef) {
	v.ImagePoints = append(v.ImagePoints, ref)
}

// AddVanishingLine records a non-owning reference to a VanishingLine belonging to this viewpoint.
func (v *Viewpoint) AddVanishingLine(ref EntityRef) {
	v.VanishingLines = append(v.VanishingLines, ref)
}
