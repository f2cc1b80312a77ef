package adjust

import (
	"github.com/photogrid/bundleadjust/diagnostics"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/residual"
	"github.com/photogrid/bundleadjust/residual/robustloss"
	"github.com/photogrid/bundleadjust/varlayout"
)

// buildResidualSet registers one provider per ImagePoint, per Line, per Constraint, and
// per camera orientation (the quaternion unit-norm soft constraint), in arena order, per
// spec §4.4's ordering guarantee. Each provider is wrapped with the configured robust
// loss, except the quaternion unit-norm term, which is never an outlier measurement and
// so is never down-weighted. The returned map locates each ImagePoint's 2-row
// reprojection block within the combined residual vector; the returned blocks locate every
// Line and Constraint provider's rows and the WorldPoints they should bucket to, per spec
// §4.8 (the quaternion unit-norm term has no WorldPoint source, so it is never bucketed).
func buildResidualSet(
	proj *project.Project,
	layout *varlayout.Layout,
) (*residual.Set, map[project.EntityRef]int, []diagnostics.EntityResidualBlock) {
	arena := proj.Arena
	loss := robustloss.FromKind(proj.Settings.RobustLoss, proj.Settings.RobustLossScale)

	var providers []residual.Provider
	offsets := make(map[project.EntityRef]int, len(arena.ImagePoints()))
	for i, ip := range arena.ImagePoints() {
		ref := project.EntityRef{Kind: project.KindImagePoint, Index: i}
		offsets[ref] = i * 2 // every reprojection provider emits exactly 2 rows, in this order
		providers = append(providers, robustloss.Wrap(residual.NewReprojectionProvider(layout, arena, ip), loss))
	}
	total := len(arena.ImagePoints()) * 2

	var blocks []diagnostics.EntityResidualBlock
	addBlock := func(ref project.EntityRef, p residual.Provider, worldPoints []project.EntityRef) {
		rows := p.ResidualCount()
		blocks = append(blocks, diagnostics.EntityResidualBlock{Ref: ref, Offset: total, Rows: rows, WorldPoints: worldPoints})
		total += rows
	}

	for i, line := range arena.Lines() {
		if !line.Enabled {
			continue
		}
		ref := project.EntityRef{Kind: project.KindLine, Index: i}
		endpoints := []project.EntityRef{line.EndpointA, line.EndpointB}
		if kind, _ := residualLineDirectionKind(line); kind {
			p := residual.NewLineDirectionProvider(layout, arena, line)
			addBlock(ref, p, endpoints)
			providers = append(providers, robustloss.Wrap(p, loss))
		}
		if line.TargetLength != nil {
			p := residual.NewLineLengthProvider(layout, arena, line)
			addBlock(ref, p, endpoints)
			providers = append(providers, robustloss.Wrap(p, loss))
		}
	}

	for i, c := range arena.Constraints() {
		if !c.IsEnabled() {
			continue
		}
		p := constraintProvider(layout, arena, c)
		if p == nil {
			continue
		}
		ref := project.EntityRef{Kind: project.KindConstraint, Index: i}
		addBlock(ref, p, constraintWorldPoints(arena, c))
		providers = append(providers, robustloss.Wrap(p, loss))
	}

	for _, ref := range layout.CameraOrder() {
		providers = append(providers, residual.NewQuatUnitNormProvider(layout, ref))
	}

	return residual.NewSet(providers), offsets, blocks
}

// constraintWorldPoints returns every WorldPoint a Constraint's residual depends on, for
// diagnostics bucketing. ParallelLines/PerpendicularLines reference Lines rather than
// WorldPoints directly, so their endpoints are resolved through the arena.
func constraintWorldPoints(arena *project.Arena, c project.Constraint) []project.EntityRef {
	switch v := c.(type) {
	case *project.DistanceConstraint:
		return []project.EntityRef{v.A, v.B}
	case *project.FixedPointConstraint:
		return []project.EntityRef{v.Point}
	case *project.CollinearConstraint:
		return v.Points
	case *project.CoplanarConstraint:
		return v.Points
	case *project.EqualDistancesConstraint:
		var out []project.EntityRef
		for _, pair := range v.Pairs {
			out = append(out, pair.A, pair.B)
		}
		return out
	case *project.ParallelLinesConstraint:
		lineA, lineB := arena.Line(v.LineA), arena.Line(v.LineB)
		return []project.EntityRef{lineA.EndpointA, lineA.EndpointB, lineB.EndpointA, lineB.EndpointB}
	case *project.PerpendicularLinesConstraint:
		lineA, lineB := arena.Line(v.LineA), arena.Line(v.LineB)
		return []project.EntityRef{lineA.EndpointA, lineA.EndpointB, lineB.EndpointA, lineB.EndpointB}
	default:
		return nil
	}
}

// residualLineDirectionKind reports whether line carries a direction constraint worth a
// LineDirectionProvider (DirectionFree contributes no residual).
func residualLineDirectionKind(line *project.Line) (bool, project.DirectionTag) {
	return line.Direction != project.DirectionFree, line.Direction
}

// constraintProvider builds the residual.Provider for one Constraint, type-switching on
// its concrete type the way the solver's tagged-union providers are always recovered.
func constraintProvider(layout *varlayout.Layout, arena *project.Arena, c project.Constraint) residual.Provider {
	switch v := c.(type) {
	case *project.DistanceConstraint:
		return residual.NewDistanceProvider(layout, arena, v)
	case *project.FixedPointConstraint:
		return residual.NewFixedPointProvider(layout, arena, v)
	case *project.CollinearConstraint:
		return residual.NewCollinearProvider(layout, arena, v)
	case *project.CoplanarConstraint:
		return residual.NewCoplanarProvider(layout, arena, v)
	case *project.EqualDistancesConstraint:
		return residual.NewEqualDistancesProvider(layout, arena, v)
	case *project.ParallelLinesConstraint:
		return residual.NewParallelLinesProvider(layout, arena, v)
	case *project.PerpendicularLinesConstraint:
		return residual.NewPerpendicularLinesProvider(layout, arena, v)
	default:
		return nil
	}
}
