package spatialmath

import "github.com/golang/geo/r3"

// Pose is a rigid transform: a position in world coordinates and an orientation
// quaternion. Viewpoints (cameras) and line endpoints are expressed in terms of Pose and
// r3.Vector throughout the solver.
type Pose struct {
	Position    r3.Vector
	Orientation Quaternion
}

// NewPose builds a Pose from a position and orientation.
func NewPose(position r3.Vector, orientation Quaternion) Pose {
	return Pose{Position: position, Orientation: orientation}
}

// NewPoseFromPoint builds a Pose at the given position with identity orientation.
func NewPoseFromPoint(position r3.Vector) Pose {
	return Pose{Position: position, Orientation: IdentityQuaternion()}
}

// ToCameraFrame transforms a world point into this pose's local frame: translate then
// rotate by the conjugate (inverse) orientation. This is steps 1-2 of the projection
// pipeline, factored out so both Project and its Jacobian share one definition.
func (p Pose) ToCameraFrame(world r3.Vector) r3.Vector {
	t := world.Sub(p.Position)
	return p.Orientation.Conjugate().RotateVector(t)
}

// Delta returns the relative pose that maps `from` onto `to`: position difference and
// orientation difference (to.Orientation * from.Orientation⁻¹).
func Delta(from, to Pose) Pose {
	return Pose{
		Position:    to.Position.Sub(from.Position),
		Orientation: to.Orientation.Mul(from.Orientation.Conjugate()),
	}
}
