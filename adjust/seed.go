package adjust

import (
	"github.com/photogrid/bundleadjust/baerrors"
	"github.com/photogrid/bundleadjust/initialize"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/varlayout"
)

// candidateSeed is one candidate starting state to probe, named by the initializer that
// produced it (spec §4.7 step 2).
type candidateSeed struct {
	Source string
	X      []float64
}

// generateCandidateSeeds runs the initialization suite (spec §4.6) against the orchestrator's
// own Layout (the one gauge-fixing already built), rather than initialize.RunAll, which
// builds its own Layout from scratch: the orchestrator's gauge-fixing decision (locking a
// camera's pose for the duration of this solve) must stay in effect across candidate
// generation, LM, and application, so every stage has to share the one Layout instance.
// An initializer failure falls through to the next and never aborts the solve on its own
// (§7); SmartSeed's ErrInvalidConfiguration, returned when the layout has no free
// variables, is passed through to the caller.
func generateCandidateSeeds(proj *project.Project, layout *varlayout.Layout) ([]candidateSeed, []string, error) {
	var candidates []*initialize.Candidate

	if c, err := initialize.VanishingPointPose(proj, layout); err == nil {
		candidates = append(candidates, c)
	}
	if c, err := initialize.PnP(proj, layout); err == nil {
		candidates = append(candidates, c)
	}
	if c, err := initialize.EssentialMatrix(proj, layout); err == nil {
		candidates = append(candidates, c)
	}
	for _, c := range candidates {
		initialize.Triangulate(proj, layout, c.X)
	}

	smart, err := initialize.SmartSeed(proj, layout, candidates)
	if err != nil {
		return nil, nil, err
	}
	candidates = append(candidates, smart)

	for _, c := range candidates {
		initialize.Align(proj, layout, c.X)
	}

	if len(candidates) == 0 {
		return nil, nil, baerrors.ErrInsufficientData
	}

	seeds := make([]candidateSeed, len(candidates))
	for i, c := range candidates {
		seeds[i] = candidateSeed{Source: c.Source, X: c.X}
	}

	return seeds, camerasSeededByAnyCandidate(proj, layout, candidates), nil
}

// camerasSeededByAnyCandidate reports every free-pose camera whose position or
// orientation columns differ from the layout's pre-solve initial values in at least one
// candidate, i.e. a camera an initializer actually placed rather than left untouched.
func camerasSeededByAnyCandidate(proj *project.Project, layout *varlayout.Layout, candidates []*initialize.Candidate) []string {
	const eps = 1e-9
	arena := proj.Arena
	var names []string
	for _, ref := range layout.CameraOrder() {
		cv, _ := layout.Camera(ref)
		if cv.PosCol[0] == -1 {
			continue
		}
		seeded := false
		for _, c := range candidates {
			for _, col := range append(append([]int{}, cv.PosCol[:]...), cv.QuatCol[:]...) {
				if abs(c.X[col]-layout.InitialValues[col]) > eps {
					seeded = true
					break
				}
			}
			if seeded {
				break
			}
		}
		if seeded {
			names = append(names, arena.Viewpoint(ref).Name)
		}
	}
	return names
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
