// Package robustloss implements the IRLS-style reweighting wrapper spec §4.4 describes:
// any residual.Provider can be wrapped with a Loss so that outlier-sized residuals
// contribute less to the normal equations, without each provider needing its own notion
// of robustness. Grounded on the teacher's metric-decorator pattern (NewScaledSquaredNorm
// Metric wrapping a base distance function with a scale factor) — the same "wrap a scoring
// function with a numeric transform" shape, generalized from a scalar scale factor to a
// full influence-function reweighting.
package robustloss

import (
	"math"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
)

// Loss computes the IRLS weight for a scalar residual r: Weight returns sqrt(w(r)), the
// factor both the residual value and its Jacobian row are rescaled by (rescaling both by
// the same sqrt(w) makes the reweighted least-squares problem equivalent to minimizing
// sum w(r)*r^2, the standard IRLS formulation).
type Loss interface {
	Weight(r float64) float64
}

// None applies no reweighting: every residual is treated as provided (plain L2).
type None struct{}

func (None) Weight(float64) float64 { return 1 }

// Huber is quadratic for |r|<=scale and linear beyond it.
type Huber struct{ Scale float64 }

func (h Huber) Weight(r float64) float64 {
	a := math.Abs(r)
	if a <= h.Scale {
		return 1
	}
	return math.Sqrt(h.Scale / a)
}

// Cauchy (Lorentzian) down-weights residuals smoothly with no hard cutoff.
type Cauchy struct{ Scale float64 }

func (c Cauchy) Weight(r float64) float64 {
	s2 := c.Scale * c.Scale
	return math.Sqrt(s2 / (s2 + r*r))
}

// Tukey (biweight) gives zero weight beyond its cutoff, fully rejecting large outliers.
type Tukey struct{ Scale float64 }

func (tk Tukey) Weight(r float64) float64 {
	a := math.Abs(r)
	if a >= tk.Scale {
		return 0
	}
	u := a / tk.Scale
	return 1 - u*u
}

// FromKind constructs the Loss named by kind at the given scale.
func FromKind(kind project.RobustLossKind, scale float64) Loss {
	switch kind {
	case project.RobustLossHuber:
		return Huber{Scale: scale}
	case project.RobustLossCauchy:
		return Cauchy{Scale: scale}
	case project.RobustLossTukey:
		return Tukey{Scale: scale}
	default:
		return None{}
	}
}

// Provider is the subset of residual.Provider that Wrap needs (kept narrow so this package
// does not import package residual; adjust wires the two together).
type Provider interface {
	ResidualCount() int
	Compute(x []float64, out []float64)
	AppendJacobian(x []float64, jac *sparsela.CSR)
}

// wrapped rescales an inner Provider's residual and Jacobian rows by loss.Weight(r).
type wrapped struct {
	inner Provider
	loss  Loss
	buf   []float64
}

// Wrap decorates inner so every residual row it emits is reweighted by loss.
func Wrap(inner Provider, loss Loss) Provider {
	if _, ok := loss.(None); ok {
		return inner
	}
	return &wrapped{inner: inner, loss: loss, buf: make([]float64, inner.ResidualCount())}
}

func (w *wrapped) ResidualCount() int { return w.inner.ResidualCount() }

func (w *wrapped) Compute(x []float64, out []float64) {
	w.inner.Compute(x, out)
	for i, r := range out {
		out[i] = r * w.loss.Weight(r)
	}
}

// AppendJacobian recomputes the unweighted residual (needed to evaluate the weight) before
// appending the inner Jacobian's rows scaled by the same loss.Weight factor.
func (w *wrapped) AppendJacobian(x []float64, jac *sparsela.CSR) {
	w.inner.Compute(x, w.buf)
	start := jac.Rows()
	w.inner.AppendJacobian(x, jac)
	scaleRows(jac, start, w.buf, w.loss)
}

// scaleRows rescales the data entries of the rows appended since startRow by
// loss.Weight(residual) for each row's corresponding residual value, mutating the
// just-appended rows in place via CSR.ScaleRow.
func scaleRows(jac *sparsela.CSR, startRow int, residuals []float64, loss Loss) {
	for i, r := range residuals {
		scale := loss.Weight(r)
		jac.ScaleRow(startRow+i, scale)
	}
}
