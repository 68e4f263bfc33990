// Package regression fits penalised linear models of a user's rating.
//
// Every fit uses the legacy "normalize" preprocessing: features are centered
// and each column is scaled by the L2 norm of its centered values. Coefficients
// are mapped back to the original feature scale, so Predict takes raw rows.
package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/frame"
)

// Params are the hyper-parameters of one fit. L1Ratio only matters for
// ElasticNet.
type Params struct {
	Alpha   float64
	L1Ratio float64
}

// Map reports the params the way a caller configured them.
func (p Params) Map(alg domain.Algorithm) map[string]float64 {
	out := map[string]float64{"alpha": p.Alpha}
	if alg == domain.AlgorithmElasticNet {
		out["l1_ratio"] = p.L1Ratio
	}
	return out
}

// Model is a fitted linear model. All fields are exported so it can be
// gob-encoded by the registry.
type Model struct {
	Algorithm domain.Algorithm
	Params    Params
	Features  []string
	Coef      []float64
	Intercept float64
}

// Predict applies the model to raw feature rows.
func (m *Model) Predict(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = m.Intercept + floats.Dot(m.Coef, row)
	}
	return out
}

// PredictFrame aligns f to the model features and predicts every row.
// Feature columns f lacks count as zero.
func (m *Model) PredictFrame(f *frame.Frame) []float64 {
	return m.Predict(f.Matrix(m.Features))
}

const (
	maxIter = 1000
	tol     = 1e-4
)

// Fit trains alg with params on rows x and target y.
func Fit(alg domain.Algorithm, params Params, x [][]float64, y []float64) (*Model, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows for %d targets", domain.ErrInsufficientData, len(x), len(y))
	}
	if len(x[0]) == 0 {
		return &Model{Algorithm: alg, Params: params, Intercept: floats.Sum(y) / float64(len(y))}, nil
	}
	d := newDesign(x, y)

	var w []float64
	switch alg {
	case domain.AlgorithmRidge:
		var err error
		if w, err = d.ridge(params.Alpha); err != nil {
			return nil, err
		}
	case domain.AlgorithmLasso:
		w = d.coordinateDescent(params.Alpha, 1, nil)
	case domain.AlgorithmElasticNet:
		w = d.coordinateDescent(params.Alpha, params.L1Ratio, nil)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", domain.ErrInvalidConfig, alg)
	}

	m := d.model(w)
	m.Algorithm = alg
	m.Params = params
	return m, nil
}

// design is a normalised problem: xs holds centered, scaled columns and yc
// the centered target.
type design struct {
	n, p   int
	xs     *mat.Dense
	yc     []float64
	xMean  []float64
	xScale []float64
	yMean  float64
}

func newDesign(x [][]float64, y []float64) *design {
	n, p := len(x), len(x[0])
	d := &design{
		n:      n,
		p:      p,
		xs:     mat.NewDense(n, p, nil),
		yc:     make([]float64, n),
		xMean:  make([]float64, p),
		xScale: make([]float64, p),
	}

	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		mean := floats.Sum(col) / float64(n)
		floats.AddConst(-mean, col)
		scale := floats.Norm(col, 2)
		if scale == 0 {
			scale = 1
		}
		floats.Scale(1/scale, col)
		d.xs.SetCol(j, col)
		d.xMean[j] = mean
		d.xScale[j] = scale
	}

	d.yMean = floats.Sum(y) / float64(n)
	copy(d.yc, y)
	floats.AddConst(-d.yMean, d.yc)
	return d
}

// model maps normalised coefficients back to the raw feature scale.
func (d *design) model(w []float64) *Model {
	coef := make([]float64, d.p)
	for j := range coef {
		coef[j] = w[j] / d.xScale[j]
	}
	return &Model{
		Coef:      coef,
		Intercept: d.yMean - floats.Dot(d.xMean, coef),
	}
}

// ridge solves (XᵀX + αI)w = Xᵀy.
func (d *design) ridge(alpha float64) ([]float64, error) {
	var a mat.Dense
	a.Mul(d.xs.T(), d.xs)
	for j := 0; j < d.p; j++ {
		a.Set(j, j, a.At(j, j)+alpha)
	}
	var b mat.VecDense
	b.MulVec(d.xs.T(), mat.NewVecDense(d.n, d.yc))

	var w mat.VecDense
	if err := w.SolveVec(&a, &b); err != nil {
		// An ill-conditioned system still yields a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("solve ridge system: %w", err)
		}
	}
	return mat.Col(nil, 0, &w), nil
}

// coordinateDescent minimises
//
//	1/(2n)‖y−Xw‖² + α·ρ‖w‖₁ + ½α(1−ρ)‖w‖²
//
// by cyclic coordinate updates, starting from w0 when given.
func (d *design) coordinateDescent(alpha, l1Ratio float64, w0 []float64) []float64 {
	w := make([]float64, d.p)
	if w0 != nil {
		copy(w, w0)
	}

	l1 := alpha * l1Ratio * float64(d.n)
	l2 := alpha * (1 - l1Ratio) * float64(d.n)

	cols := make([][]float64, d.p)
	norms := make([]float64, d.p)
	for j := range cols {
		cols[j] = mat.Col(nil, j, d.xs)
		norms[j] = floats.Dot(cols[j], cols[j])
	}

	// residual r = y - Xw
	r := make([]float64, d.n)
	copy(r, d.yc)
	for j, wj := range w {
		if wj != 0 {
			floats.AddScaled(r, -wj, cols[j])
		}
	}

	for iter := 0; iter < maxIter; iter++ {
		var maxW, maxStep float64
		for j := 0; j < d.p; j++ {
			if norms[j] == 0 {
				continue
			}
			old := w[j]
			if old != 0 {
				floats.AddScaled(r, old, cols[j])
			}
			rho := floats.Dot(cols[j], r)
			w[j] = softThreshold(rho, l1) / (norms[j] + l2)
			if w[j] != 0 {
				floats.AddScaled(r, -w[j], cols[j])
			}
			maxStep = max(maxStep, math.Abs(w[j]-old))
			maxW = max(maxW, math.Abs(w[j]))
		}
		if maxW == 0 || maxStep/maxW < tol {
			break
		}
	}
	return w
}

func softThreshold(x, t float64) float64 {
	switch {
	case x > t:
		return x - t
	case x < -t:
		return x + t
	}
	return 0
}

