package project

import "github.com/golang/geo/r3"

// WorldPoint is a 3D point the solver estimates. Each axis is independently free, locked to
// a numeric value, or (for Z typically) absent; effective coordinates fall back to the
// current optimized estimate whenever an axis isn't locked.
type WorldPoint struct {
	Name string

	LockedX, LockedY, LockedZ *float64
	OptimizedXYZ              r3.Vector

	// Observations holds non-owning references to this point's ImagePoint sightings.
	Observations []EntityRef

	// LastResiduals records the most recent residual norm of each residual source touching
	// this point, keyed by the ImagePoint ref for reprojection and by the Line or Constraint
	// ref for geometric residual blocks, for diagnostics reporting. Populated only after a
	// solve.
	LastResiduals map[EntityRef]float64
}

// NewWorldPoint creates a WorldPoint with the given name and initial (fully free) estimate.
func NewWorldPoint(name string, initial r3.Vector) *WorldPoint {
	return &WorldPoint{Name: name, OptimizedXYZ: initial}
}

// EffectiveXYZ returns the point's current coordinates: locked[i] where set, else the
// optimized estimate.
func (p *WorldPoint) EffectiveXYZ() r3.Vector {
	v := p.OptimizedXYZ
	if p.LockedX != nil {
		v.X = *p.LockedX
	}
	if p.LockedY != nil {
		v.Y = *p.LockedY
	}
	if p.LockedZ != nil {
		v.Z = *p.LockedZ
	}
	return v
}

// IsAxisLocked reports whether the given axis (0=X, 1=Y, 2=Z) is locked to a fixed value.
func (p *WorldPoint) IsAxisLocked(axis int) bool {
	switch axis {
	case 0:
		return p.LockedX != nil
	case 1:
		return p.LockedY != nil
	case 2:
		return p.LockedZ != nil
	default:
		return false
	}
}

// FullyConstrained reports whether all three axes are locked, meaning the point contributes
// no free variables to the layout on its own (it may still be inferred via constraints).
func (p *WorldPoint) FullyConstrained() bool {
	return p.LockedX != nil && p.LockedY != nil && p.LockedZ != nil
}

// AddObservation records a non-owning reference to an ImagePoint that sights this point.
func (p *WorldPoint) AddObservation(ref EntityRef) {
	p.Observations = append(p.Observations, ref)
}
