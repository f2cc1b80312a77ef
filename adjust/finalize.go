package adjust

import (
	"time"

	"github.com/photogrid/bundleadjust/baerrors"
	"github.com/photogrid/bundleadjust/diagnostics"
	"github.com/photogrid/bundleadjust/lm"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/residual"
	"github.com/photogrid/bundleadjust/varlayout"
)

// finalizeSolve implements spec §4.7 steps 5-8 against the winning attempt: grade
// quality, run outlier detection, apply the winning variable vector back onto entities
// (writing lastResiduals as diagnostics.Analyze buckets them), and assemble the report.
// best.full.X is applied even on a non-converged or erroring attempt, per §7's recovery
// policy: the caller always receives a report describing the best candidate found, never
// a bare error.
func finalizeSolve(
	proj *project.Project,
	layout *varlayout.Layout,
	set *residual.Set,
	reprojOffsets map[project.EntityRef]int,
	entityBlocks []diagnostics.EntityResidualBlock,
	driver *lm.Driver,
	best *attempt,
	bestErr error,
	camerasInitialized []string,
	start time.Time,
) SolveReport {
	if best == nil {
		return SolveReport{Quality: QualityUnknown, Err: baerrors.ErrDidNotConverge, ElapsedMs: elapsedSince(start)}
	}

	x := best.full.X
	layout.Apply(proj, x)

	rebuiltJac := driver.JacobianAt(x)
	report := diagnostics.Analyze(proj, layout, set, reprojOffsets, entityBlocks, rebuiltJac, x, worstNObservations)

	quality := gradeQuality(report.MedianPixelErr)

	reportErr := bestErr
	if reportErr == nil && !best.full.Converged {
		reportErr = baerrors.Wrap(baerrors.ErrDidNotConverge, "full LM pass on winning candidate "+best.source)
	}

	return SolveReport{
		Converged:               best.full.Converged,
		Iterations:              best.full.Iterations,
		TotalError:              2 * best.full.FinalCost,
		MedianReprojectionError: report.MedianPixelErr,
		Quality:                 quality,
		OutlierIDs:              report.Outliers,
		CamerasInitialized:      camerasInitialized,
		ElapsedMs:               elapsedSince(start),
		Err:                     reportErr,
	}
}
