// Package adjust is the module's public entry point: the orchestrator that runs
// initialization, candidate selection, and Levenberg-Marquardt refinement over a Project
// and reports the outcome, per spec §4.7. Grounded on the teacher's top-level planner
// orchestration shape (a PlanRequest in, a Plan/error out, internally trying multiple
// planners/seeds and keeping the lowest-cost result — armplanning's cBiRRT/linearized
// planners attempting several seeded runs).
package adjust

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/photogrid/bundleadjust/baerrors"
	"github.com/photogrid/bundleadjust/lm"
	"github.com/photogrid/bundleadjust/logging"
	"github.com/photogrid/bundleadjust/project"
)

func elapsedClock() time.Time              { return time.Now() }
func elapsedSince(start time.Time) float64 { return float64(time.Since(start).Microseconds()) / 1000.0 }

// probeMaxIterations bounds the short LM probe each candidate gets before the top-K
// survivors run full LM (spec §4.7 step 3: "a short LM probe (<=200 iterations)").
const probeMaxIterations = 200

// topK is how many probe survivors proceed to full LM (spec §4.7 step 4).
const topK = 3

// worstNObservations bounds the worst-observations list in the final diagnostics report.
const worstNObservations = 10

// SolveReport is the outcome of a Solve or FineTune call, per spec §6.
type SolveReport struct {
	Converged               bool
	Iterations              uint
	TotalError              float64
	MedianReprojectionError *float64
	Quality                 Quality
	OutlierIDs              []project.EntityRef
	CamerasInitialized      []string
	ElapsedMs               float64
	Err                     error
}

// attempt bundles one candidate's seed vector with its probe and (if it ran) full-LM
// result, threaded through the pipeline so the best can be selected without recomputing.
type attempt struct {
	source  string
	seed    []float64
	probe   lm.Result
	full    lm.Result
	ranFull bool
}

// Solve runs the full orchestration pipeline: gauge determination, candidate generation,
// deduplication, short-probe triage, full LM on the top-K survivors, quality grading,
// outlier detection, and final application of the winning candidate (spec §4.7 steps
// 1-8). It never returns an error: all failure modes except Cancelled and a hard
// InvalidConfiguration are reported via SolveReport.Err with the best candidate found so
// far applied, per the recovery policy in §7.
func Solve(ctx context.Context, proj *project.Project, opts project.SolverOptions) SolveReport {
	start := elapsedClock()
	logger := logging.NewLogger("adjust")

	layout, gaugeCam, gaugeFixed := buildLayoutWithGauge(proj)
	if layout.VariableCount == 0 {
		return SolveReport{Quality: QualityUnknown, Err: baerrors.ErrInvalidConfiguration, ElapsedMs: elapsedSince(start)}
	}
	if gaugeFixed {
		logger.Infow("locked camera pose for gauge fixing", "camera", gaugeCam)
	}

	set, reprojOffsets, entityBlocks := buildResidualSet(proj, layout)
	if set.Total() == 0 {
		return SolveReport{Quality: QualityUnknown, Err: baerrors.ErrInvalidConfiguration, ElapsedMs: elapsedSince(start)}
	}

	seeds, camerasInitialized, err := generateCandidateSeeds(proj, layout)
	if err != nil {
		return SolveReport{Quality: QualityUnknown, Err: baerrors.Wrap(err, "generating candidate seeds"), ElapsedMs: elapsedSince(start)}
	}

	driver := lm.NewDriver(layout, set, logger.Sublogger("lm"))
	probeOpts := lm.OptionsFrom(opts)
	probeOpts.MaxIterations = minUint(probeOpts.MaxIterations, probeMaxIterations)

	attempts := make([]*attempt, 0, len(seeds))
	costs := make([]float64, 0, len(seeds))
	for _, seed := range seeds {
		select {
		case <-ctx.Done():
			return SolveReport{Quality: QualityUnknown, Err: baerrors.ErrCancelled, ElapsedMs: elapsedSince(start)}
		default:
		}
		probeResult, probeErr := driver.Run(ctx, seed.X, probeOpts)
		if probeErr != nil {
			if baerrors.ClassifyKind(probeErr) == baerrors.KindCancelled {
				return SolveReport{Quality: QualityUnknown, Err: baerrors.ErrCancelled, ElapsedMs: elapsedSince(start)}
			}
			// A diverged candidate (e.g. numerical breakdown) is discarded, not retried
			// (spec §7's recovery policy): rank it last so it never wins dedup/top-K.
			attempts = append(attempts, &attempt{source: seed.Source, seed: seed.X, probe: probeResult})
			costs = append(costs, math.Inf(1))
			continue
		}
		attempts = append(attempts, &attempt{source: seed.Source, seed: seed.X, probe: probeResult})
		costs = append(costs, probeResult.FinalCost)
	}

	if len(attempts) == 0 {
		return SolveReport{Quality: QualityUnknown, Err: baerrors.ErrInsufficientData, ElapsedMs: elapsedSince(start)}
	}

	order := make([]int, len(costs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return costs[order[i]] < costs[order[j]] })

	kept := dedupeCandidates(costs, order)
	if len(kept) > topK {
		kept = kept[:topK]
	}

	fullOpts := lm.OptionsFrom(opts)
	var best *attempt
	var bestErr error
	for _, idx := range kept {
		a := attempts[idx]
		fullResult, fullErr := driver.Run(ctx, a.seed, fullOpts)
		if fullErr != nil && baerrors.ClassifyKind(fullErr) == baerrors.KindCancelled {
			return SolveReport{Quality: QualityUnknown, Err: baerrors.ErrCancelled, ElapsedMs: elapsedSince(start)}
		}
		a.full = fullResult
		a.ranFull = true
		if best == nil || fullResult.FinalCost < best.full.FinalCost {
			best = a
			bestErr = fullErr
		}
	}

	report := finalizeSolve(proj, layout, set, reprojOffsets, entityBlocks, driver, best, bestErr, camerasInitialized, start)
	return report
}

// FineTune implements spec §4.7's single-pass fast path: bypasses initialization and
// candidate selection, seeding from the Project's current entity state and running one
// LM pass to tight tolerance, for refining an already-calibrated project.
func FineTune(ctx context.Context, proj *project.Project, opts project.SolverOptions) SolveReport {
	start := elapsedClock()
	logger := logging.NewLogger("adjust")

	layout, gaugeCam, gaugeFixed := buildLayoutWithGauge(proj)
	if layout.VariableCount == 0 {
		return SolveReport{Quality: QualityUnknown, Err: baerrors.ErrInvalidConfiguration, ElapsedMs: elapsedSince(start)}
	}
	if gaugeFixed {
		logger.Infow("locked camera pose for gauge fixing", "camera", gaugeCam)
	}

	set, reprojOffsets, entityBlocks := buildResidualSet(proj, layout)
	driver := lm.NewDriver(layout, set, logger.Sublogger("lm"))

	result, err := driver.Run(ctx, layout.InitialValues, lm.OptionsFrom(opts))
	a := &attempt{source: "fine_tune", seed: layout.InitialValues, full: result, ranFull: true}

	report := finalizeSolve(proj, layout, set, reprojOffsets, entityBlocks, driver, a, err, nil, start)
	return report
}

func minUint(a, b uint) uint {
	if a == 0 || b < a {
		return b
	}
	return a
}
