package project

// Arena owns every entity in a Project as contiguous slices, indexed by the stable
// EntityRef values the rest of the solver uses to cross-link WorldPoint, Viewpoint,
// ImagePoint, Line, VanishingLine, and Constraint without ownership cycles (per the
// design note: cross-references are stable indices, never pointers held in both
// directions).
type Arena struct {
	worldPoints    []*WorldPoint
	viewpoints     []*Viewpoint
	imagePoints    []*ImagePoint
	lines          []*Line
	vanishingLines []*VanishingLine
	constraints    []Constraint
}

// NewArena returns an empty Arena.
func NewArena() *Arena { return &Arena{} }

// AddWorldPoint appends p and returns its stable ref.
func (a *Arena) AddWorldPoint(p *WorldPoint) EntityRef {
	a.worldPoints = append(a.worldPoints, p)
	return EntityRef{Kind: KindWorldPoint, Index: len(a.worldPoints) - 1}
}

// AddViewpoint appends v and returns its stable ref.
func (a *Arena) AddViewpoint(v *Viewpoint) EntityRef {
	a.viewpoints = append(a.viewpoints, v)
	return EntityRef{Kind: KindViewpoint, Index: len(a.viewpoints) - 1}
}

// AddImagePoint appends ip and returns its stable ref, additionally recording the
// back-reference on both the observed WorldPoint and the observing Viewpoint.
func (a *Arena) AddImagePoint(ip *ImagePoint) EntityRef {
	a.imagePoints = append(a.imagePoints, ip)
	ref := EntityRef{Kind: KindImagePoint, Index: len(a.imagePoints) - 1}
	a.MustWorldPoint(ip.WorldPoint).AddObservation(ref)
	a.MustViewpoint(ip.Viewpoint).AddImagePoint(ref)
	return ref
}

// AddLine appends l and returns its stable ref.
func (a *Arena) AddLine(l *Line) EntityRef {
	a.lines = append(a.lines, l)
	return EntityRef{Kind: KindLine, Index: len(a.lines) - 1}
}

// AddVanishingLine appends vl and returns its stable ref, recording the back-reference on
// its owning Viewpoint.
func (a *Arena) AddVanishingLine(vl *VanishingLine) EntityRef {
	a.vanishingLines = append(a.vanishingLines, vl)
	ref := EntityRef{Kind: KindVanishingLine, Index: len(a.vanishingLines) - 1}
	a.MustViewpoint(vl.Viewpoint).AddVanishingLine(ref)
	return ref
}

// AddConstraint appends c and returns its stable ref.
func (a *Arena) AddConstraint(c Constraint) EntityRef {
	a.constraints = append(a.constraints, c)
	return EntityRef{Kind: KindConstraint, Index: len(a.constraints) - 1}
}

// WorldPoint returns the world point at ref, or nil if ref is not a WorldPoint ref or is
// out of range.
func (a *Arena) WorldPoint(ref EntityRef) *WorldPoint {
	if ref.Kind != KindWorldPoint || ref.Index < 0 || ref.Index >= len(a.worldPoints) {
		return nil
	}
	return a.worldPoints[ref.Index]
}

// MustWorldPoint panics if ref does not resolve to a WorldPoint; used internally once a
// ref's kind has already been validated by the caller (e.g. AddImagePoint).
func (a *Arena) MustWorldPoint(ref EntityRef) *WorldPoint {
	p := a.WorldPoint(ref)
	if p == nil {
		panic("project: invalid WorldPoint ref")
	}
	return p
}

// Viewpoint returns the viewpoint at ref, or nil if out of range.
func (a *Arena) Viewpoint(ref EntityRef) *Viewpoint {
	if ref.Kind != KindViewpoint || ref.Index < 0 || ref.Index >= len(a.viewpoints) {
		return nil
	}
	return a.viewpoints[ref.Index]
}

// MustViewpoint panics if ref does not resolve to a Viewpoint.
func (a *Arena) MustViewpoint(ref EntityRef) *Viewpoint {
	v := a.Viewpoint(ref)
	if v == nil {
		panic("project: invalid Viewpoint ref")
	}
	return v
}

// ImagePoint returns the image point at ref, or nil if out of range.
func (a *Arena) ImagePoint(ref EntityRef) *ImagePoint {
	if ref.Kind != KindImagePoint || ref.Index < 0 || ref.Index >= len(a.imagePoints) {
		return nil
	}
	return a.imagePoints[ref.Index]
}

// Line returns the line at ref, or nil if out of range.
func (a *Arena) Line(ref EntityRef) *Line {
	if ref.Kind != KindLine || ref.Index < 0 || ref.Index >= len(a.lines) {
		return nil
	}
	return a.lines[ref.Index]
}

// VanishingLine returns the vanishing line at ref, or nil if out of range.
func (a *Arena) VanishingLine(ref EntityRef) *VanishingLine {
	if ref.Kind != KindVanishingLine || ref.Index < 0 || ref.Index >= len(a.vanishingLines) {
		return nil
	}
	return a.vanishingLines[ref.Index]
}

// Constraint returns the constraint at ref, or nil if out of range.
func (a *Arena) Constraint(ref EntityRef) Constraint {
	if ref.Kind != KindConstraint || ref.Index < 0 || ref.Index >= len(a.constraints) {
		return nil
	}
	return a.constraints[ref.Index]
}

// WorldPoints returns every world point, in arena order.
func (a *Arena) WorldPoints() []*WorldPoint { return a.worldPoints }

// Viewpoints returns every viewpoint, in arena order.
func (a *Arena) Viewpoints() []*Viewpoint { return a.viewpoints }

// ImagePoints returns every image point, in arena order.
func (a *Arena) ImagePoints() []*ImagePoint { return a.imagePoints }

// Lines returns every line, in arena order.
func (a *Arena) Lines() []*Line { return a.lines }

// VanishingLines returns every vanishing line, in arena order.
func (a *Arena) VanishingLines() []*VanishingLine { return a.vanishingLines }

// Constraints returns every constraint, in arena order.
func (a *Arena) Constraints() []Constraint { return a.constraints }

// WorldPointRef returns the ref for the i'th world point.
func (a *Arena) WorldPointRef(i int) EntityRef { return EntityRef{Kind: KindWorldPoint, Index: i} }

// ViewpointRef returns the ref for the i'th viewpoint.
func (a *Arena) ViewpointRef(i int) EntityRef { return EntityRef{Kind: KindViewpoint, Index: i} }
