package regression

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/evaluate"
)

// DefaultFolds is the number of cross-validation folds used by the trainers.
const DefaultFolds = 5

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits 0..n-1 into k contiguous test folds without shuffling. The
// first n%k folds get one extra row.
func KFold(n, k int) ([]Fold, error) {
	if k < 2 || n < k {
		return nil, fmt.Errorf("%w: cannot split %d rows into %d folds", domain.ErrInsufficientData, n, k)
	}
	folds := make([]Fold, 0, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		end := start + size
		fold := Fold{}
		for i := 0; i < n; i++ {
			if i >= start && i < end {
				fold.Test = append(fold.Test, i)
			} else {
				fold.Train = append(fold.Train, i)
			}
		}
		folds = append(folds, fold)
		start = end
	}
	return folds, nil
}

// TrainTestSplit shuffles 0..n-1 with seed and holds out ceil(testFrac*n)
// rows for testing.
func TrainTestSplit(n int, testFrac float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(testFrac * float64(n)))
	if nTest > n {
		nTest = n
	}
	return perm[nTest:], perm[:nTest]
}

// Linspace returns num evenly spaced values over [start, stop].
func Linspace(start, stop float64, num int) []float64 {
	if num == 1 {
		return []float64{start}
	}
	out := make([]float64, num)
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out
}

// Grid lists the hyper-parameter combinations searched for alg.
func Grid(alg domain.Algorithm) ([]Params, error) {
	switch alg {
	case domain.AlgorithmLasso, domain.AlgorithmRidge:
		alphas := Linspace(0.01, 1.0, 50)
		out := make([]Params, len(alphas))
		for i, a := range alphas {
			out[i] = Params{Alpha: a, L1Ratio: 1}
		}
		return out, nil
	case domain.AlgorithmElasticNet:
		alphas := Linspace(0.1, 1.0, 50)
		ratios := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
		out := make([]Params, 0, len(alphas)*len(ratios))
		for _, a := range alphas {
			for _, r := range ratios {
				out = append(out, Params{Alpha: a, L1Ratio: r})
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown algorithm %q", domain.ErrInvalidConfig, alg)
}

// GridSearch cross-validates every combination of Grid(alg) and returns the
// one with the lowest MAE pooled over all test folds. Earlier combinations win
// ties.
func GridSearch(alg domain.Algorithm, x [][]float64, y []float64, folds int) (Params, float64, error) {
	grid, err := Grid(alg)
	if err != nil {
		return Params{}, 0, err
	}
	splits, err := KFold(len(x), folds)
	if err != nil {
		return Params{}, 0, err
	}

	best, bestMAE := Params{}, math.Inf(1)
	for _, params := range grid {
		var pred, actual []float64
		for _, s := range splits {
			m, err := Fit(alg, params, rowsAt(x, s.Train), valsAt(y, s.Train))
			if err != nil {
				return Params{}, 0, fmt.Errorf("fit %s %+v: %w", alg, params, err)
			}
			pred = append(pred, m.Predict(rowsAt(x, s.Test))...)
			actual = append(actual, valsAt(y, s.Test)...)
		}
		if mae := evaluate.MAE(pred, actual); mae < bestMAE {
			best, bestMAE = params, mae
		}
	}
	return best, bestMAE, nil
}

const (
	lassoCVAlphas = 100
	lassoCVRange  = 1e-3
)

// LassoCV picks the Lasso alpha with the lowest mean fold MSE over a log grid
// from the smallest alpha that zeroes every coefficient down to a thousandth
// of it, then refits on all rows.
func LassoCV(x [][]float64, y []float64, folds int) (*Model, error) {
	splits, err := KFold(len(x), folds)
	if err != nil {
		return nil, err
	}
	if len(x[0]) == 0 {
		return Fit(domain.AlgorithmLasso, Params{L1Ratio: 1}, x, y)
	}
	alphas := lassoAlphas(newDesign(x, y))

	mse := make([]float64, len(alphas))
	for _, s := range splits {
		d := newDesign(rowsAt(x, s.Train), valsAt(y, s.Train))
		testX, testY := rowsAt(x, s.Test), valsAt(y, s.Test)
		var w []float64
		for i, a := range alphas {
			w = d.coordinateDescent(a, 1, w)
			mse[i] += evaluate.MSE(d.model(w).Predict(testX), testY) / float64(len(splits))
		}
	}

	best := 0
	for i := range mse {
		if mse[i] < mse[best] {
			best = i
		}
	}
	return Fit(domain.AlgorithmLasso, Params{Alpha: alphas[best], L1Ratio: 1}, x, y)
}

// lassoAlphas returns the descending log-spaced alpha path for d.
func lassoAlphas(d *design) []float64 {
	alphaMax := 0.0
	for j := 0; j < d.p; j++ {
		var dot float64
		for i := 0; i < d.n; i++ {
			dot += d.xs.At(i, j) * d.yc[i]
		}
		alphaMax = max(alphaMax, math.Abs(dot)/float64(d.n))
	}
	if alphaMax == 0 {
		alphaMax = 1e-12
	}
	hi, lo := math.Log10(alphaMax), math.Log10(alphaMax*lassoCVRange)
	out := Linspace(hi, lo, lassoCVAlphas)
	for i, e := range out {
		out[i] = math.Pow(10, e)
	}
	return out
}

// RemoveOutliers returns the indices of y that lie within 1.5 IQR of the
// quartiles, in order.
func RemoveOutliers(y []float64) []int {
	if len(y) == 0 {
		return nil
	}
	q1, q3 := Quantile(y, 0.25), Quantile(y, 0.75)
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr

	keep := make([]int, 0, len(y))
	for i, v := range y {
		if v >= lo && v <= hi {
			keep = append(keep, i)
		}
	}
	return keep
}

// Quantile uses linear interpolation between closest ranks.
func Quantile(vals []float64, q float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func rowsAt(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for j, i := range idx {
		out[j] = x[i]
	}
	return out
}

func valsAt(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = y[i]
	}
	return out
}
