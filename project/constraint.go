package project

// ConstraintKind tags which concrete Constraint implementation a Constraint value holds,
// mirroring the tagged-union pattern the solver uses in place of a runtime inheritance
// chain (one interface, one Kind method, a closed set of concrete structs).
type ConstraintKind int

const (
	ConstraintDistance ConstraintKind = iota
	ConstraintFixedPoint
	ConstraintCollinear
	ConstraintCoplanar
	ConstraintEqualDistances
	ConstraintParallelLines
	ConstraintPerpendicularLines
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintDistance:
		return "Distance"
	case ConstraintFixedPoint:
		return "FixedPoint"
	case ConstraintCollinear:
		return "Collinear"
	case ConstraintCoplanar:
		return "Coplanar"
	case ConstraintEqualDistances:
		return "EqualDistances"
	case ConstraintParallelLines:
		return "ParallelLines"
	case ConstraintPerpendicularLines:
		return "PerpendicularLines"
	default:
		return "Unknown"
	}
}

// Constraint is the common interface every concrete auxiliary-geometry constraint
// implements. Callers type-switch on the concrete constraint type to recover the struct.
type Constraint interface {
	Kind() ConstraintKind
	IsEnabled() bool
	SetEnabled(bool)
	GetPriority() int
	GetTolerance() float64
}

// base holds the fields common to every constraint variant.
type base struct {
	Enabled   bool
	Priority  int
	Tolerance float64
}

func (b *base) IsEnabled() bool       { return b.Enabled }
func (b *base) SetEnabled(v bool)     { b.Enabled = v }
func (b *base) GetPriority() int      { return b.Priority }
func (b *base) GetTolerance() float64 { return b.Tolerance }

func newBase(tolerance float64) base {
	return base{Enabled: true, Tolerance: tolerance}
}

// DistanceConstraint pins ‖A−B‖ to Target.
type DistanceConstraint struct {
	base
	A, B   EntityRef
	Target float64
}

func (c *DistanceConstraint) Kind() ConstraintKind { return ConstraintDistance }

// NewDistanceConstraint creates an enabled DistanceConstraint.
func NewDistanceConstraint(a, b EntityRef, target, tolerance float64) *DistanceConstraint {
	return &DistanceConstraint{base: newBase(tolerance), A: a, B: b, Target: target}
}

// FixedPointConstraint pins a point's effective position to Target, independent of the
// point's per-axis lock state (used for the over-constrained scenario in the testable
// properties: a point may be both locked and FixedPoint-constrained to a different value).
type FixedPointConstraint struct {
	base
	Point  EntityRef
	Target [3]float64
}

func (c *FixedPointConstraint) Kind() ConstraintKind { return ConstraintFixedPoint }

// NewFixedPointConstraint creates an enabled FixedPointConstraint.
func NewFixedPointConstraint(point EntityRef, target [3]float64, tolerance float64) *FixedPointConstraint {
	return &FixedPointConstraint{base: newBase(tolerance), Point: point, Target: target}
}

// CollinearConstraint requires every point in Points to lie on one line.
type CollinearConstraint struct {
	base
	Points []EntityRef
}

func (c *CollinearConstraint) Kind() ConstraintKind { return ConstraintCollinear }

// NewCollinearConstraint creates an enabled CollinearConstraint over at least 3 points.
func NewCollinearConstraint(points []EntityRef, tolerance float64) *CollinearConstraint {
	return &CollinearConstraint{base: newBase(tolerance), Points: points}
}

// CoplanarConstraint requires every point in Points to lie on one plane.
type CoplanarConstraint struct {
	base
	Points []EntityRef
}

func (c *CoplanarConstraint) Kind() ConstraintKind { return ConstraintCoplanar }

// NewCoplanarConstraint creates an enabled CoplanarConstraint over at least 4 points.
func NewCoplanarConstraint(points []EntityRef, tolerance float64) *CoplanarConstraint {
	return &CoplanarConstraint{base: newBase(tolerance), Points: points}
}

// DistancePair is one (A,B) pair within an EqualDistancesConstraint.
type DistancePair struct {
	A, B EntityRef
}

// EqualDistancesConstraint requires every ‖A_i−B_i‖ in Pairs to be equal.
type EqualDistancesConstraint struct {
	base
	Pairs []DistancePair
}

func (c *EqualDistancesConstraint) Kind() ConstraintKind { return ConstraintEqualDistances }

// NewEqualDistancesConstraint creates an enabled EqualDistancesConstraint over at least 2 pairs.
func NewEqualDistancesConstraint(pairs []DistancePair, tolerance float64) *EqualDistancesConstraint {
	return &EqualDistancesConstraint{base: newBase(tolerance), Pairs: pairs}
}

// ParallelLinesConstraint requires two Lines to share a direction.
type ParallelLinesConstraint struct {
	base
	LineA, LineB EntityRef
}

func (c *ParallelLinesConstraint) Kind() ConstraintKind { return ConstraintParallelLines }

// NewParallelLinesConstraint creates an enabled ParallelLinesConstraint.
func NewParallelLinesConstraint(a, b EntityRef, tolerance float64) *ParallelLinesConstraint {
	return &ParallelLinesConstraint{base: newBase(tolerance), LineA: a, LineB: b}
}

// PerpendicularLinesConstraint requires two Lines to meet at a right angle.
type PerpendicularLinesConstraint struct {
	base
	LineA, LineB EntityRef
}

func (c *PerpendicularLinesConstraint) Kind() ConstraintKind { return ConstraintPerpendicularLines }

// NewPerpendicularLinesConstraint creates an enabled PerpendicularLinesConstraint.
func NewPerpendicularLinesConstraint(a, b EntityRef, tolerance float64) *PerpendicularLinesConstraint {
	return &PerpendicularLinesConstraint{base: newBase(tolerance), LineA: a, LineB: b}
}
