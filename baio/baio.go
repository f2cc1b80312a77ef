// Package baio is the serialization boundary between a project.Project and the JSON
// persistence format an external collaborator (UI, CLI, test harness) hands the core
// solver, per spec §6's persistence notes and SPEC_FULL.md §4.9. It is intentionally thin:
// a field-for-field DTO mirror plus a Load/Save pair, with no DB/gRPC/network stack behind
// it, since persistence itself is explicitly out of core scope.
package baio

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/spatialmath"
)

// documentDTO is the top-level JSON shape: a project id/name plus every entity table and
// the solver settings, per spec §6's "JSON with a project id, name, records for world
// points... viewpoints... image points... lines... constraints... and settings".
type documentDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	WorldPoints []worldPointDTO `json:"worldPoints"`
	Viewpoints  []viewpointDTO  `json:"viewpoints"`
	ImagePoints []imagePointDTO `json:"imagePoints"`
	Lines       []lineDTO       `json:"lines"`
	Constraints []constraintDTO `json:"constraints"`
	Settings    settingsDTO     `json:"settings"`
}

type worldPointDTO struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	LockedX      *float64   `json:"lockedX,omitempty"`
	LockedY      *float64   `json:"lockedY,omitempty"`
	LockedZ      *float64   `json:"lockedZ,omitempty"`
	OptimizedXYZ [3]float64 `json:"optimizedXyz"`
	Color        string     `json:"color,omitempty"`
}

// extrinsicsDTO carries orientation in axis-angle and/or quaternion form; Save writes both
// AxisAngle and Quaternion, and Load accepts either on read (quaternion takes precedence
// when both are present).
type extrinsicsDTO struct {
	Position   [3]float64    `json:"position"`
	AxisAngle  *axisAngleDTO `json:"axisAngle,omitempty"`
	Quaternion *[4]float64   `json:"quaternion,omitempty"`
}

type axisAngleDTO struct {
	Theta, RX, RY, RZ float64
}

func (a axisAngleDTO) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{a.Theta, a.RX, a.RY, a.RZ})
}

func (a *axisAngleDTO) UnmarshalJSON(b []byte) error {
	var v [4]float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	a.Theta, a.RX, a.RY, a.RZ = v[0], v[1], v[2], v[3]
	return nil
}

type intrinsicsDTO struct {
	Fx          float64 `json:"fx"`
	AspectRatio float64 `json:"aspectRatio"`
	Cx          float64 `json:"cx"`
	Cy          float64 `json:"cy"`
	Skew        float64 `json:"skew"`
	K1          float64 `json:"k1"`
	K2          float64 `json:"k2"`
	K3          float64 `json:"k3"`
	P1          float64 `json:"p1"`
	P2          float64 `json:"p2"`
}

type vanishingLineDTO struct {
	Axis string  `json:"axis"`
	AU   float64 `json:"au"`
	AV   float64 `json:"av"`
	BU   float64 `json:"bu"`
	BV   float64 `json:"bv"`
}

type viewpointDTO struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Intrinsics     intrinsicsDTO      `json:"intrinsics"`
	Extrinsics     extrinsicsDTO      `json:"extrinsics"`
	ImageWidth     int                `json:"imageWidth"`
	ImageHeight    int                `json:"imageHeight"`
	VanishingLines []vanishingLineDTO `json:"vanishingLines,omitempty"`
	IsPoseLocked   bool               `json:"isPoseLocked,omitempty"`
	EnabledInSolve bool               `json:"enabledInSolve"`
	IsZReflected   bool               `json:"isZReflected,omitempty"`
}

type imagePointDTO struct {
	ViewpointID  string  `json:"viewpointId"`
	WorldPointID string  `json:"worldPointId"`
	U            float64 `json:"u"`
	V            float64 `json:"v"`
}

type lineDTO struct {
	ID           string   `json:"id"`
	EndpointAID  string   `json:"endpointAId"`
	EndpointBID  string   `json:"endpointBId"`
	Direction    string   `json:"direction"`
	TargetLength *float64 `json:"targetLength,omitempty"`
	Tolerance    float64  `json:"tolerance,omitempty"`
	Enabled      bool     `json:"enabled"`
}

// constraintDTO is a tagged union over the seven constraint kinds, discriminated by Type;
// only the fields relevant to Type are populated on save and read on load.
type constraintDTO struct {
	Type      string      `json:"type"`
	Tolerance float64     `json:"tolerance,omitempty"`
	Enabled   bool        `json:"enabled"`
	A         string      `json:"a,omitempty"`
	B         string      `json:"b,omitempty"`
	Target    float64     `json:"target,omitempty"`
	Point     string      `json:"point,omitempty"`
	TargetXYZ *[3]float64 `json:"targetXyz,omitempty"`
	Points    []string    `json:"points,omitempty"`
	Pairs     [][2]string `json:"pairs,omitempty"`
	LineA     string      `json:"lineA,omitempty"`
	LineB     string      `json:"lineB,omitempty"`
}

type settingsDTO struct {
	MaxIterations      uint    `json:"maxIterations"`
	Tolerance          float64 `json:"tolerance"`
	InitialDamping     float64 `json:"initialDamping"`
	LockCameraPoses    bool    `json:"lockCameraPoses"`
	OptimizeIntrinsics bool    `json:"optimizeIntrinsics"`
	RobustLoss         string  `json:"robustLoss"`
	RobustLossScale    float64 `json:"robustLossScale"`
	Verbose            bool    `json:"verbose,omitempty"`
}

const (
	directionFree       = "free"
	directionX          = "x"
	directionY          = "y"
	directionZ          = "z"
	directionXY         = "xy"
	directionXZ         = "xz"
	directionYZ         = "yz"
	directionHorizontal = "horizontal"
	directionVertical   = "vertical"
)

func directionToDTO(d project.DirectionTag) string {
	switch d {
	case project.DirectionX:
		return directionX
	case project.DirectionY:
		return directionY
	case project.DirectionZ:
		return directionZ
	case project.DirectionXY:
		return directionXY
	case project.DirectionXZ:
		return directionXZ
	case project.DirectionYZ:
		return directionYZ
	case project.DirectionHorizontal:
		return directionHorizontal
	case project.DirectionVertical:
		return directionVertical
	default:
		return directionFree
	}
}

func directionFromDTO(s string) project.DirectionTag {
	switch s {
	case directionX:
		return project.DirectionX
	case directionY:
		return project.DirectionY
	case directionZ:
		return project.DirectionZ
	case directionXY:
		return project.DirectionXY
	case directionXZ:
		return project.DirectionXZ
	case directionYZ:
		return project.DirectionYZ
	case directionHorizontal:
		return project.DirectionHorizontal
	case directionVertical:
		return project.DirectionVertical
	default:
		return project.DirectionFree
	}
}

func axisToDTO(a project.Axis) string {
	switch a {
	case project.AxisX:
		return "x"
	case project.AxisY:
		return "y"
	default:
		return "z"
	}
}

func axisFromDTO(s string) project.Axis {
	switch s {
	case "x":
		return project.AxisX
	case "y":
		return project.AxisY
	default:
		return project.AxisZ
	}
}

func robustLossToDTO(k project.RobustLossKind) string {
	switch k {
	case project.RobustLossHuber:
		return "huber"
	case project.RobustLossCauchy:
		return "cauchy"
	case project.RobustLossTukey:
		return "tukey"
	default:
		return "none"
	}
}

func robustLossFromDTO(s string) project.RobustLossKind {
	switch s {
	case "huber":
		return project.RobustLossHuber
	case "cauchy":
		return project.RobustLossCauchy
	case "tukey":
		return project.RobustLossTukey
	default:
		return project.RobustLossNone
	}
}

func intrinsicsToDTO(in spatialmath.Intrinsics) intrinsicsDTO {
	return intrinsicsDTO{
		Fx: in.Fx, AspectRatio: in.AspectRatio, Cx: in.Cx, Cy: in.Cy, Skew: in.Skew,
		K1: in.K1, K2: in.K2, K3: in.K3, P1: in.P1, P2: in.P2,
	}
}

func intrinsicsFromDTO(d intrinsicsDTO) spatialmath.Intrinsics {
	return spatialmath.Intrinsics{
		Fx: d.Fx, AspectRatio: d.AspectRatio, Cx: d.Cx, Cy: d.Cy, Skew: d.Skew,
		K1: d.K1, K2: d.K2, K3: d.K3, P1: d.P1, P2: d.P2,
	}
}

func settingsToDTO(s project.SolverOptions) settingsDTO {
	return settingsDTO{
		MaxIterations:      s.MaxIterations,
		Tolerance:          s.Tolerance,
		InitialDamping:     s.InitialDamping,
		LockCameraPoses:    s.LockCameraPoses,
		OptimizeIntrinsics: s.OptimizeIntrinsics,
		RobustLoss:         robustLossToDTO(s.RobustLoss),
		RobustLossScale:    s.RobustLossScale,
		Verbose:            s.Verbose,
	}
}

func settingsFromDTO(d settingsDTO) project.SolverOptions {
	return project.SolverOptions{
		MaxIterations:      d.MaxIterations,
		Tolerance:          d.Tolerance,
		InitialDamping:     d.InitialDamping,
		LockCameraPoses:    d.LockCameraPoses,
		OptimizeIntrinsics: d.OptimizeIntrinsics,
		RobustLoss:         robustLossFromDTO(d.RobustLoss),
		RobustLossScale:    d.RobustLossScale,
		Verbose:            d.Verbose,
	}
}

// Save encodes proj as the JSON persistence document, assigning each entity a short
// opaque id ("wp0", "vp3", "ln1", ...) derived from its arena position, and a fresh
// document id distinct from the project's display Name (spec §6 lists "project id, name"
// as separate fields; Name is not stable or unique enough to double as the id).
func Save(proj *project.Project) ([]byte, error) {
	arena := proj.Arena
	doc := documentDTO{ID: uuid.NewString(), Name: proj.Name, Settings: settingsToDTO(proj.Settings)}

	for i, wp := range arena.WorldPoints() {
		d := worldPointDTO{
			ID:           worldPointID(i),
			Name:         wp.Name,
			LockedX:      wp.LockedX,
			LockedY:      wp.LockedY,
			LockedZ:      wp.LockedZ,
			OptimizedXYZ: [3]float64{wp.OptimizedXYZ.X, wp.OptimizedXYZ.Y, wp.OptimizedXYZ.Z},
		}
		doc.WorldPoints = append(doc.WorldPoints, d)
	}

	for i, vp := range arena.Viewpoints() {
		aa := spatialmath.QuatToR4AA(vp.Orientation)
		vlines := make([]vanishingLineDTO, 0, len(vp.VanishingLines))
		for _, ref := range vp.VanishingLines {
			vl := arena.VanishingLine(ref)
			vlines = append(vlines, vanishingLineDTO{
				Axis: axisToDTO(vl.Axis), AU: vl.AU, AV: vl.AV, BU: vl.BU, BV: vl.BV,
			})
		}
		quat := [4]float64{vp.Orientation.Real, vp.Orientation.Imag, vp.Orientation.Jmag, vp.Orientation.Kmag}
		d := viewpointDTO{
			ID:         viewpointID(i),
			Name:       vp.Name,
			Intrinsics: intrinsicsToDTO(vp.Intrinsics),
			Extrinsics: extrinsicsDTO{
				Position:   [3]float64{vp.Position.X, vp.Position.Y, vp.Position.Z},
				AxisAngle:  &axisAngleDTO{Theta: aa.Theta, RX: aa.RX, RY: aa.RY, RZ: aa.RZ},
				Quaternion: &quat,
			},
			ImageWidth:     vp.ImageWidth,
			ImageHeight:    vp.ImageHeight,
			VanishingLines: vlines,
			IsPoseLocked:   vp.IsPoseLocked,
			EnabledInSolve: vp.EnabledInSolve,
			IsZReflected:   vp.IsZReflected,
		}
		doc.Viewpoints = append(doc.Viewpoints, d)
	}

	for _, ip := range arena.ImagePoints() {
		doc.ImagePoints = append(doc.ImagePoints, imagePointDTO{
			ViewpointID:  viewpointID(ip.Viewpoint.Index),
			WorldPointID: worldPointID(ip.WorldPoint.Index),
			U:            ip.U,
			V:            ip.V,
		})
	}

	for i, l := range arena.Lines() {
		doc.Lines = append(doc.Lines, lineDTO{
			ID:           lineID(i),
			EndpointAID:  worldPointID(l.EndpointA.Index),
			EndpointBID:  worldPointID(l.EndpointB.Index),
			Direction:    directionToDTO(l.Direction),
			TargetLength: l.TargetLength,
			Tolerance:    l.Tolerance,
			Enabled:      l.Enabled,
		})
	}

	for _, c := range arena.Constraints() {
		cd, err := constraintToDTO(c)
		if err != nil {
			return nil, err
		}
		doc.Constraints = append(doc.Constraints, cd)
	}

	return json.MarshalIndent(doc, "", "  ")
}

func constraintToDTO(c project.Constraint) (constraintDTO, error) {
	switch v := c.(type) {
	case *project.DistanceConstraint:
		return constraintDTO{
			Type: "distance", Tolerance: v.Tolerance, Enabled: v.Enabled,
			A: worldPointID(v.A.Index), B: worldPointID(v.B.Index), Target: v.Target,
		}, nil
	case *project.FixedPointConstraint:
		target := v.Target
		return constraintDTO{
			Type: "fixedPoint", Tolerance: v.Tolerance, Enabled: v.Enabled,
			Point: worldPointID(v.Point.Index), TargetXYZ: &target,
		}, nil
	case *project.CollinearConstraint:
		return constraintDTO{
			Type: "collinear", Tolerance: v.Tolerance, Enabled: v.Enabled,
			Points: worldPointIDs(v.Points),
		}, nil
	case *project.CoplanarConstraint:
		return constraintDTO{
			Type: "coplanar", Tolerance: v.Tolerance, Enabled: v.Enabled,
			Points: worldPointIDs(v.Points),
		}, nil
	case *project.EqualDistancesConstraint:
		pairs := make([][2]string, len(v.Pairs))
		for i, p := range v.Pairs {
			pairs[i] = [2]string{worldPointID(p.A.Index), worldPointID(p.B.Index)}
		}
		return constraintDTO{
			Type: "equalDistances", Tolerance: v.Tolerance, Enabled: v.Enabled, Pairs: pairs,
		}, nil
	case *project.ParallelLinesConstraint:
		return constraintDTO{
			Type: "parallelLines", Tolerance: v.Tolerance, Enabled: v.Enabled,
			LineA: lineID(v.LineA.Index), LineB: lineID(v.LineB.Index),
		}, nil
	case *project.PerpendicularLinesConstraint:
		return constraintDTO{
			Type: "perpendicularLines", Tolerance: v.Tolerance, Enabled: v.Enabled,
			LineA: lineID(v.LineA.Index), LineB: lineID(v.LineB.Index),
		}, nil
	default:
		return constraintDTO{}, fmt.Errorf("baio: unknown constraint kind %T", c)
	}
}

func worldPointIDs(refs []project.EntityRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = worldPointID(r.Index)
	}
	return ids
}

func worldPointID(i int) string { return fmt.Sprintf("wp%d", i) }
func viewpointID(i int) string  { return fmt.Sprintf("vp%d", i) }
func lineID(i int) string       { return fmt.Sprintf("ln%d", i) }

// Load decodes the JSON persistence document into a new project.Project, resolving every
// opaque id reference to the arena ref assigned when its entity was added. Entities are
// added in document order (world points, then viewpoints, then image points, then lines,
// then constraints) so forward references within one table never occur, matching how Save
// numbers ids by arena position.
func Load(data []byte) (*project.Project, error) {
	var doc documentDTO
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("baio: decoding document: %w", err)
	}

	proj := project.NewProject(doc.Name)
	proj.Settings = settingsFromDTO(doc.Settings)
	arena := proj.Arena

	worldPointRefs := make(map[string]project.EntityRef, len(doc.WorldPoints))
	for _, d := range doc.WorldPoints {
		wp := project.NewWorldPoint(d.Name, r3.Vector{X: d.OptimizedXYZ[0], Y: d.OptimizedXYZ[1], Z: d.OptimizedXYZ[2]})
		wp.LockedX, wp.LockedY, wp.LockedZ = d.LockedX, d.LockedY, d.LockedZ
		worldPointRefs[d.ID] = arena.AddWorldPoint(wp)
	}

	viewpointRefs := make(map[string]project.EntityRef, len(doc.Viewpoints))
	for _, d := range doc.Viewpoints {
		vp := project.NewViewpoint(d.Name, intrinsicsFromDTO(d.Intrinsics), d.ImageWidth, d.ImageHeight)
		vp.Position = r3.Vector{X: d.Extrinsics.Position[0], Y: d.Extrinsics.Position[1], Z: d.Extrinsics.Position[2]}
		vp.Orientation = extrinsicsOrientation(d.Extrinsics)
		vp.IsPoseLocked = d.IsPoseLocked
		vp.EnabledInSolve = d.EnabledInSolve
		vp.IsZReflected = d.IsZReflected
		ref := arena.AddViewpoint(vp)
		viewpointRefs[d.ID] = ref
		for _, vl := range d.VanishingLines {
			arena.AddVanishingLine(project.NewVanishingLine(ref, axisFromDTO(vl.Axis), vl.AU, vl.AV, vl.BU, vl.BV))
		}
	}

	for _, d := range doc.ImagePoints {
		wpRef, ok := worldPointRefs[d.WorldPointID]
		if !ok {
			return nil, fmt.Errorf("baio: image point references unknown world point %q", d.WorldPointID)
		}
		vpRef, ok := viewpointRefs[d.ViewpointID]
		if !ok {
			return nil, fmt.Errorf("baio: image point references unknown viewpoint %q", d.ViewpointID)
		}
		arena.AddImagePoint(project.NewImagePoint(wpRef, vpRef, d.U, d.V))
	}

	lineRefs := make(map[string]project.EntityRef, len(doc.Lines))
	for _, d := range doc.Lines {
		aRef, ok := worldPointRefs[d.EndpointAID]
		if !ok {
			return nil, fmt.Errorf("baio: line references unknown world point %q", d.EndpointAID)
		}
		bRef, ok := worldPointRefs[d.EndpointBID]
		if !ok {
			return nil, fmt.Errorf("baio: line references unknown world point %q", d.EndpointBID)
		}
		l := project.NewLine("", aRef, bRef, directionFromDTO(d.Direction))
		l.TargetLength = d.TargetLength
		l.Tolerance = d.Tolerance
		l.Enabled = d.Enabled
		lineRefs[d.ID] = arena.AddLine(l)
	}

	for _, d := range doc.Constraints {
		c, err := constraintFromDTO(d, worldPointRefs, lineRefs)
		if err != nil {
			return nil, err
		}
		arena.AddConstraint(c)
	}

	return proj, nil
}

func extrinsicsOrientation(e extrinsicsDTO) spatialmath.Quaternion {
	if e.Quaternion != nil {
		q := *e.Quaternion
		return spatialmath.NewQuaternion(q[0], q[1], q[2], q[3])
	}
	if e.AxisAngle != nil {
		return spatialmath.R4AA{Theta: e.AxisAngle.Theta, RX: e.AxisAngle.RX, RY: e.AxisAngle.RY, RZ: e.AxisAngle.RZ}.ToQuat()
	}
	return spatialmath.IdentityQuaternion()
}

func constraintFromDTO(d constraintDTO, worldPoints, lines map[string]project.EntityRef) (project.Constraint, error) {
	resolvePoint := func(id string) (project.EntityRef, error) {
		ref, ok := worldPoints[id]
		if !ok {
			return project.NoRef, fmt.Errorf("baio: constraint references unknown world point %q", id)
		}
		return ref, nil
	}
	resolveLine := func(id string) (project.EntityRef, error) {
		ref, ok := lines[id]
		if !ok {
			return project.NoRef, fmt.Errorf("baio: constraint references unknown line %q", id)
		}
		return ref, nil
	}
	resolvePoints := func(ids []string) ([]project.EntityRef, error) {
		refs := make([]project.EntityRef, len(ids))
		for i, id := range ids {
			r, err := resolvePoint(id)
			if err != nil {
				return nil, err
			}
			refs[i] = r
		}
		return refs, nil
	}

	switch d.Type {
	case "distance":
		a, err := resolvePoint(d.A)
		if err != nil {
			return nil, err
		}
		b, err := resolvePoint(d.B)
		if err != nil {
			return nil, err
		}
		c := project.NewDistanceConstraint(a, b, d.Target, d.Tolerance)
		c.Enabled = d.Enabled
		return c, nil
	case "fixedPoint":
		p, err := resolvePoint(d.Point)
		if err != nil {
			return nil, err
		}
		var target [3]float64
		if d.TargetXYZ != nil {
			target = *d.TargetXYZ
		}
		c := project.NewFixedPointConstraint(p, target, d.Tolerance)
		c.Enabled = d.Enabled
		return c, nil
	case "collinear":
		pts, err := resolvePoints(d.Points)
		if err != nil {
			return nil, err
		}
		c := project.NewCollinearConstraint(pts, d.Tolerance)
		c.Enabled = d.Enabled
		return c, nil
	case "coplanar":
		pts, err := resolvePoints(d.Points)
		if err != nil {
			return nil, err
		}
		c := project.NewCoplanarConstraint(pts, d.Tolerance)
		c.Enabled = d.Enabled
		return c, nil
	case "equalDistances":
		pairs := make([]project.DistancePair, len(d.Pairs))
		for i, p := range d.Pairs {
			a, err := resolvePoint(p[0])
			if err != nil {
				return nil, err
			}
			b, err := resolvePoint(p[1])
			if err != nil {
				return nil, err
			}
			pairs[i] = project.DistancePair{A: a, B: b}
		}
		c := project.NewEqualDistancesConstraint(pairs, d.Tolerance)
		c.Enabled = d.Enabled
		return c, nil
	case "parallelLines":
		a, err := resolveLine(d.LineA)
		if err != nil {
			return nil, err
		}
		b, err := resolveLine(d.LineB)
		if err != nil {
			return nil, err
		}
		c := project.NewParallelLinesConstraint(a, b, d.Tolerance)
		c.Enabled = d.Enabled
		return c, nil
	case "perpendicularLines":
		a, err := resolveLine(d.LineA)
		if err != nil {
			return nil, err
		}
		b, err := resolveLine(d.LineB)
		if err != nil {
			return nil, err
		}
		c := project.NewPerpendicularLinesConstraint(a, b, d.Tolerance)
		c.Enabled = d.Enabled
		return c, nil
	default:
		return nil, fmt.Errorf("baio: unknown constraint type %q", d.Type)
	}
}
