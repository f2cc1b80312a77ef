package adjust

import (
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/varlayout"
)

// countFullyLockedPoints returns how many WorldPoints have every axis locked — the
// spec §4.7 step 1 gauge test ("if >=2 fully-locked points exist, no camera need be
// locked").
func countFullyLockedPoints(arena *project.Arena) int {
	n := 0
	for _, wp := range arena.WorldPoints() {
		if wp.FullyConstrained() {
			n++
		}
	}
	return n
}

// firstGaugeCamera returns the first enabled, not-already-pose-locked Viewpoint ref, the
// gauge-fixing candidate when fewer than two points are fully locked.
func firstGaugeCamera(arena *project.Arena) (project.EntityRef, bool) {
	for i, vp := range arena.Viewpoints() {
		if vp.EnabledInSolve && !vp.IsPoseLocked {
			return project.EntityRef{Kind: project.KindViewpoint, Index: i}, true
		}
	}
	return project.EntityRef{}, false
}

// buildLayoutWithGauge implements spec §4.7 step 1: when fewer than two WorldPoints are
// fully locked, the first eligible camera's pose is locked for the duration of this
// layout build to fix the reconstruction's 7-DOF gauge freedom (rigid transform + scale),
// then released — this is a transient solve-time decision, not a persisted entity
// mutation, so the camera's IsPoseLocked flag is restored immediately after Build runs.
func buildLayoutWithGauge(proj *project.Project) (*varlayout.Layout, project.EntityRef, bool) {
	arena := proj.Arena
	if countFullyLockedPoints(arena) >= 2 {
		return varlayout.Build(proj), project.EntityRef{}, false
	}

	ref, ok := firstGaugeCamera(arena)
	if !ok {
		return varlayout.Build(proj), project.EntityRef{}, false
	}

	vp := arena.Viewpoint(ref)
	vp.IsPoseLocked = true
	layout := varlayout.Build(proj)
	vp.IsPoseLocked = false
	return layout, ref, true
}
