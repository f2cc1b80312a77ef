// Package initialize implements the candidate-seeding pipeline that runs before LM:
// vanishing-point pose, PnP, essential-matrix pose, triangulation, smart point seeding, and
// similarity alignment. Every initializer is a pure function of the current Project state
// (it never mutates entities directly; it returns a seeded free-variable vector the
// orchestrator may later apply), grounded in the teacher's stateless-planner-seed pattern
// (`motionplan/armplanning`'s per-attempt seed generation, one function per strategy, all
// returning a candidate the caller ranks rather than mutating shared state).
package initialize

import (
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/varlayout"
)

// RightHandedBonus is the scoring bonus VP pose candidates receive for producing a
// right-handed camera frame. Kept as a tunable constant per the open question in the
// design notes: the value (3e5) is carried forward from the scoring formula without a
// principled derivation, and should be re-tuned against golden scenarios if VP pose
// selection misbehaves on a new fixture set.
const RightHandedBonus = 3e5

// Candidate is one seeded starting state for LM: a free-variable vector over a fixed
// Layout, with a human-readable source label and a higher-is-better Score. SmartSeed starts
// from the earlier candidate with the highest Score; the initializers in this package leave
// Score at zero, and the orchestrator dedups and ranks candidates by probe cost.
type Candidate struct {
	Source string
	X      []float64
	Score  float64
}

// PointsInFrontBonus weights the "points in front of camera" term in ScoreReprojection,
// dominating the reprojection-error term so that a configuration with more points in front
// always outranks one with fewer, regardless of the error magnitude of either.
const PointsInFrontBonus = 1e6

// ScoreReprojection implements the VP-pose scoring formula from spec §4.6: point-in-front
// count dominates, a right-handed frame earns a flat bonus, and total reprojection error is
// subtracted last so it only breaks ties among equally-valid configurations.
func ScoreReprojection(pointsInFront int, rightHanded bool, totalReprojError float64) float64 {
	score := float64(pointsInFront) * PointsInFrontBonus
	if rightHanded {
		score += RightHandedBonus
	}
	return score - totalReprojError
}

// Result is the outcome of running every initializer over a Project: the Layout they were
// all seeded against, plus whichever candidates succeeded, in no particular order (the
// orchestrator ranks and dedups them).
type Result struct {
	Layout     *varlayout.Layout
	Candidates []*Candidate
}

// RunAll builds a Layout for proj and runs every initializer against it, collecting every
// candidate that did not fail outright. When the layout has at least one free variable a
// smart-seed candidate is always present; otherwise SmartSeed's ErrInvalidConfiguration is
// returned.
func RunAll(proj *project.Project) (*Result, error) {
	layout := varlayout.Build(proj)
	res := &Result{Layout: layout}

	if c, err := VanishingPointPose(proj, layout); err == nil {
		res.Candidates = append(res.Candidates, c)
	}
	if c, err := PnP(proj, layout); err == nil {
		res.Candidates = append(res.Candidates, c)
	}
	if c, err := EssentialMatrix(proj, layout); err == nil {
		res.Candidates = append(res.Candidates, c)
	}

	for _, c := range res.Candidates {
		Triangulate(proj, layout, c.X)
	}

	smart, err := SmartSeed(proj, layout, res.Candidates)
	if err != nil {
		return nil, err
	}
	res.Candidates = append(res.Candidates, smart)

	for _, c := range res.Candidates {
		Align(proj, layout, c.X)
	}

	return res, nil
}
