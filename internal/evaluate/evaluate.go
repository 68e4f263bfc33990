// Package evaluate scores predicted ratings against actual ones.
package evaluate

import "math"

// Error bands used for the within-tolerance percentages.
const (
	QuarterBand = 0.25
	HalfBand    = 0.50
)

// Metrics summarises a set of prediction errors. Percentages are in 0..100.
type Metrics struct {
	MAE        float64 `json:"mae"`
	MSE        float64 `json:"mse"`
	QuarterPct float64 `json:"quarter_pct"`
	HalfPct    float64 `json:"half_pct"`
	Count      int     `json:"count"`
}

// Empty reports whether nothing was evaluated.
func (m Metrics) Empty() bool { return m.Count == 0 }

// Summarize compares pred with actual element-wise. Both slices must have the
// same length; the shorter one bounds the comparison. An empty input gives the
// zero Metrics.
func Summarize(pred, actual []float64) Metrics {
	n := min(len(pred), len(actual))
	if n == 0 {
		return Metrics{}
	}

	var absSum, sqSum float64
	var quarter, half int
	for i := 0; i < n; i++ {
		e := math.Abs(pred[i] - actual[i])
		absSum += e
		sqSum += e * e
		if e <= QuarterBand {
			quarter++
		}
		if e <= HalfBand {
			half++
		}
	}
	fn := float64(n)
	return Metrics{
		MAE:        absSum / fn,
		MSE:        sqSum / fn,
		QuarterPct: 100 * float64(quarter) / fn,
		HalfPct:    100 * float64(half) / fn,
		Count:      n,
	}
}

// MAE is the mean absolute error, 0 for empty input.
func MAE(pred, actual []float64) float64 {
	return Summarize(pred, actual).MAE
}

// MSE is the mean squared error, 0 for empty input.
func MSE(pred, actual []float64) float64 {
	return Summarize(pred, actual).MSE
}
