package project

// Axis names a world axis that a VanishingLine converges toward in its owning Viewpoint's
// image.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// VanishingLine is a pixel-space line segment in one Viewpoint, labeled with the world
// axis its extension converges toward. Multiple VanishingLines sharing an Axis within the
// same Viewpoint converge to that axis's vanishing point.
type VanishingLine struct {
	Viewpoint EntityRef
	Axis      Axis

	AU, AV float64
	BU, BV float64
}

// NewVanishingLine creates a VanishingLine in the given viewpoint along axis, between two
// pixel endpoints.
func NewVanishingLine(viewpoint EntityRef, axis Axis, au, av, bu, bv float64) *VanishingLine {
	return &VanishingLine{Viewpoint: viewpoint, Axis: axis, AU: au, AV: av, BU: bu, BV: bv}
}
