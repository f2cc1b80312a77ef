// Package diagnostics implements spec §4.8: bucketing a solved state's residuals back to
// the entities that produced them, then summarizing the result into a histogram, worst-N
// observations, per-camera reprojection statistics, and a list of disabled or unobservable
// variables. Median/MAD computation is grounded on github.com/montanaflynn/stats, the
// statistical-summary package the teacher already depends on, rather than a hand-rolled
// percentile routine.
package diagnostics

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/residual"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// outlierMAD is the default multiple of the median absolute deviation beyond which an
// observation's residual is flagged as an outlier (spec §4.7 step 6).
const outlierMAD = 3.0

// ObservationError is one ImagePoint's reprojection error in pixels.
type ObservationError struct {
	Ref       project.EntityRef
	Viewpoint project.EntityRef
	PixelErr  float64
}

// EntityResidualBlock locates one non-reprojection provider's contiguous rows within the
// combined residual vector, so Analyze can bucket its residual norm back to the WorldPoints
// that feed it (spec §4.8: "bucketing each provider's residuals back to its source
// entity"), the same way reprojOffsets does for ImagePoints.
type EntityResidualBlock struct {
	Ref         project.EntityRef
	Offset      int
	Rows        int
	WorldPoints []project.EntityRef
}

// CameraStats summarizes one camera's reprojection error across its observations.
type CameraStats struct {
	Viewpoint project.EntityRef
	Name      string
	Mean      float64
	Median    float64
	Count     int
}

// Report is the diagnostics output for one solved state.
type Report struct {
	Observations   []ObservationError
	WorstN         []ObservationError
	Histogram      []int
	HistogramWidth float64
	CameraStats    []CameraStats
	Outliers       []project.EntityRef
	Unobservable   []int
	MedianPixelErr *float64
}

// Analyze buckets the residual set's final values back to their sources (each ImagePoint's
// reprojection block, and each entityBlocks block onto its WorldPoints under the block's
// Ref) and produces a full diagnostics Report. jac is the Jacobian at x (used only to find
// zero-norm, i.e. unobservable, columns); reprojOffsets locates each ImagePoint's 2-row
// reprojection block within the combined residual vector (produced alongside the Set
// that built it); worstN bounds the worst-observations list.
func Analyze(
	proj *project.Project,
	layout *varlayout.Layout,
	set *residual.Set,
	reprojOffsets map[project.EntityRef]int,
	entityBlocks []EntityResidualBlock,
	jac *sparsela.CSR,
	x []float64,
	worstN int,
) *Report {
	arena := proj.Arena
	report := &Report{}

	resid := make([]float64, set.Total())
	set.ComputeResidual(x, resid)

	byViewpoint := make(map[project.EntityRef][]float64)
	for i, ip := range arena.ImagePoints() {
		ref := project.EntityRef{Kind: project.KindImagePoint, Index: i}
		off, ok := reprojOffsets[ref]
		if !ok || off+1 >= len(resid) {
			continue
		}
		du, dv := resid[off], resid[off+1]
		pixelErr := math.Hypot(du, dv)

		report.Observations = append(report.Observations, ObservationError{Ref: ref, Viewpoint: ip.Viewpoint, PixelErr: pixelErr})
		byViewpoint[ip.Viewpoint] = append(byViewpoint[ip.Viewpoint], pixelErr)

		wp := arena.WorldPoint(ip.WorldPoint)
		if wp != nil {
			if wp.LastResiduals == nil {
				wp.LastResiduals = make(map[project.EntityRef]float64)
			}
			wp.LastResiduals[ref] = pixelErr
		}
	}

	for _, block := range entityBlocks {
		if block.Offset+block.Rows > len(resid) {
			continue
		}
		var sumSq float64
		for _, r := range resid[block.Offset : block.Offset+block.Rows] {
			sumSq += r * r
		}
		norm := math.Sqrt(sumSq)
		for _, wpRef := range block.WorldPoints {
			wp := arena.WorldPoint(wpRef)
			if wp == nil {
				continue
			}
			if wp.LastResiduals == nil {
				wp.LastResiduals = make(map[project.EntityRef]float64)
			}
			wp.LastResiduals[block.Ref] = norm
		}
	}

	report.WorstN = worstObservations(report.Observations, worstN)
	report.Histogram, report.HistogramWidth = histogram(report.Observations)
	report.CameraStats = cameraStats(arena, byViewpoint)
	report.Outliers = detectOutliers(report.Observations)
	report.Unobservable = unobservableColumns(jac, layout.VariableCount)

	if med, ok := medianPixelErr(report.Observations); ok {
		report.MedianPixelErr = &med
	}
	return report
}

func worstObservations(obs []ObservationError, n int) []ObservationError {
	sorted := append([]ObservationError(nil), obs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PixelErr > sorted[j].PixelErr })
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// histogram buckets pixel errors into 10 bins spanning [0, max], returning the bucket
// counts and bin width (0 width when there are no observations).
func histogram(obs []ObservationError) ([]int, float64) {
	const bins = 10
	if len(obs) == 0 {
		return make([]int, bins), 0
	}
	max := 0.0
	for _, o := range obs {
		if o.PixelErr > max {
			max = o.PixelErr
		}
	}
	if max == 0 {
		return make([]int, bins), 0
	}
	width := max / bins
	counts := make([]int, bins)
	for _, o := range obs {
		idx := int(o.PixelErr / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	return counts, width
}

func cameraStats(arena *project.Arena, byViewpoint map[project.EntityRef][]float64) []CameraStats {
	var out []CameraStats
	for i, vp := range arena.Viewpoints() {
		ref := project.EntityRef{Kind: project.KindViewpoint, Index: i}
		errs, ok := byViewpoint[ref]
		if !ok {
			continue
		}
		data := stats.Float64Data(errs)
		mean, _ := data.Mean()
		median, _ := data.Median()
		out = append(out, CameraStats{Viewpoint: ref, Name: vp.Name, Mean: mean, Median: median, Count: len(errs)})
	}
	return out
}

// detectOutliers flags observations whose pixel error exceeds outlierMAD times the
// median absolute deviation of all observations (spec §4.7 step 6).
func detectOutliers(obs []ObservationError) []project.EntityRef {
	if len(obs) == 0 {
		return nil
	}
	vals := make([]float64, len(obs))
	for i, o := range obs {
		vals[i] = o.PixelErr
	}
	data := stats.Float64Data(vals)
	median, err := data.Median()
	if err != nil {
		return nil
	}
	devs := make([]float64, len(vals))
	for i, v := range vals {
		devs[i] = math.Abs(v - median)
	}
	mad, err := stats.Float64Data(devs).Median()
	if err != nil || mad == 0 {
		return nil
	}

	var outliers []project.EntityRef
	threshold := outlierMAD * mad
	for _, o := range obs {
		if math.Abs(o.PixelErr-median) > threshold {
			outliers = append(outliers, o.Ref)
		}
	}
	return outliers
}

// unobservableColumns returns every free-variable column whose Jacobian column norm is
// zero: no residual depends on it (spec §4.8's "disabled or unobservable variable
// listing").
func unobservableColumns(jac *sparsela.CSR, variableCount int) []int {
	diag := make([]float64, variableCount)
	jac.DiagOfJtJ(diag)
	var out []int
	for i, d := range diag {
		if d <= 0 {
			out = append(out, i)
		}
	}
	return out
}

func medianPixelErr(obs []ObservationError) (float64, bool) {
	if len(obs) == 0 {
		return 0, false
	}
	vals := make([]float64, len(obs))
	for i, o := range obs {
		vals[i] = o.PixelErr
	}
	med, err := stats.Float64Data(vals).Median()
	if err != nil {
		return 0, false
	}
	return med, true
}
