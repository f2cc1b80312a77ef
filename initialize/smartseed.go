package initialize

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/baerrors"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/varlayout"
)

// defaultSceneScale is the fallback cube half-extent (in world units) smart seed places
// unconnected points within when the project carries no lines to size the grid from.
const defaultSceneScale = 5.0

// smartSeedRandSeed is fixed so SmartSeed's fallback placement is deterministic across
// runs of the same project, matching the orchestrator's candidate-dedup assumption that
// re-running the same initializer on the same input yields the same candidate.
const smartSeedRandSeed = 1

// SmartSeed starts from a copy of the highest-Score earlier candidate's x (or the layout's
// initial values when there is none) and places every WorldPoint not already given a
// nontrivial estimate by an earlier initializer (vanishing-point pose, PnP, essential
// matrix, or triangulation) onto a coarse grid sized from the project's line-length medians
// (or a default scene scale absent any lines), per spec §4.6. Members of an enabled coplanar
// constraint are placed on the z=0 plane instead; a point whose grid or plane position is
// the origin falls back to a deterministic random placement within the scene bounds.
// SmartSeed returns ErrInvalidConfiguration when the layout has no free variables.
func SmartSeed(proj *project.Project, layout *varlayout.Layout, earlier []*Candidate) (*Candidate, error) {
	x := append([]float64(nil), layout.InitialValues...)
	if best := bestSoFar(earlier); best != nil {
		copy(x, best.X)
	}

	scale := sceneScale(proj)
	arena := proj.Arena

	coplanarMembers := coplanarGroups(proj)

	rng := rand.New(rand.NewSource(smartSeedRandSeed))
	gridSide := math.Ceil(math.Cbrt(float64(len(layout.PointOrder()))))
	if gridSide < 1 {
		gridSide = 1
	}
	step := (2 * scale) / gridSide

	idx := 0
	for _, ref := range layout.PointOrder() {
		wp := arena.WorldPoint(ref)
		if wp.FullyConstrained() || hasNontrivialSeed(layout, x, ref, wp) {
			continue
		}

		var pos r3.Vector
		if plane, ok := coplanarMembers[ref]; ok {
			pos = planePosition(plane, idx, step)
		} else {
			pos = gridPosition(idx, gridSide, step, scale)
		}
		if pos == (r3.Vector{}) {
			pos = r3.Vector{
				X: (rng.Float64()*2 - 1) * scale,
				Y: (rng.Float64()*2 - 1) * scale,
				Z: (rng.Float64()*2 - 1) * scale,
			}
		}

		pv, _ := layout.Point(ref)
		if pv.FreeCol[0] != -1 {
			x[pv.FreeCol[0]] = pos.X
		}
		if pv.FreeCol[1] != -1 {
			x[pv.FreeCol[1]] = pos.Y
		}
		if pv.FreeCol[2] != -1 {
			x[pv.FreeCol[2]] = pos.Z
		}
		idx++
	}

	if layout.VariableCount == 0 {
		return nil, baerrors.ErrInvalidConfiguration
	}
	return &Candidate{Source: "smart_seed", X: x}, nil
}

func bestSoFar(candidates []*Candidate) *Candidate {
	var best *Candidate
	for _, c := range candidates {
		if best == nil || c.Score > best.Score {
			best = c
		}
	}
	return best
}

func hasNontrivialSeed(layout *varlayout.Layout, x []float64, ref project.EntityRef, wp *project.WorldPoint) bool {
	pos := layout.PointPosition(x, ref, wp)
	return pos.Norm() > 1e-9
}

// sceneScale derives a grid half-extent from the median length of the project's Lines with
// a TargetLength, falling back to defaultSceneScale when none are set.
func sceneScale(proj *project.Project) float64 {
	var lengths []float64
	for _, l := range proj.Arena.Lines() {
		if l.TargetLength != nil && *l.TargetLength > 0 {
			lengths = append(lengths, *l.TargetLength)
		}
	}
	if len(lengths) == 0 {
		return defaultSceneScale
	}
	return median(lengths) * 2
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func gridPosition(idx int, side, step, scale float64) r3.Vector {
	n := int(side)
	if n < 1 {
		n = 1
	}
	ix := idx % n
	iy := (idx / n) % n
	iz := idx / (n * n)
	return r3.Vector{
		X: -scale + step*(float64(ix)+0.5),
		Y: -scale + step*(float64(iy)+0.5),
		Z: -scale + step*(float64(iz)+0.5),
	}
}

// planeGroup records a coplanar constraint's member refs for smart-seed grid placement.
type planeGroup struct {
	members []project.EntityRef
}

func coplanarGroups(proj *project.Project) map[project.EntityRef]*planeGroup {
	out := make(map[project.EntityRef]*planeGroup)
	for _, c := range proj.Arena.Constraints() {
		cp, ok := c.(*project.CoplanarConstraint)
		if !ok || !cp.IsEnabled() {
			continue
		}
		group := &planeGroup{members: cp.Points}
		for _, m := range cp.Points {
			out[m] = group
		}
	}
	return out
}

// planePosition places a coplanar-group member on the z=0 plane at cell idx of a square grid
// sized from the group's member count. idx is the running index over all seeded points, so
// distinct groups share the one plane with no per-group offset.
func planePosition(group *planeGroup, idx int, step float64) r3.Vector {
	side := math.Ceil(math.Sqrt(float64(len(group.members))))
	if side < 1 {
		side = 1
	}
	n := int(side)
	ix := idx % n
	iy := (idx / n) % n
	return r3.Vector{X: step * float64(ix), Y: step * float64(iy), Z: 0}
}
