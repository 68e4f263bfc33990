package evaluate

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name         string
		pred, actual []float64
		want         Metrics
	}{
		{
			name:   "exact",
			pred:   []float64{3, 4},
			actual: []float64{3, 4},
			want:   Metrics{MAE: 0, MSE: 0, QuarterPct: 100, HalfPct: 100, Count: 2},
		},
		{
			name:   "bands are inclusive",
			pred:   []float64{3.25, 4.5, 1},
			actual: []float64{3, 4, 2},
			want:   Metrics{MAE: 0.5833333333333334, MSE: (0.0625 + 0.25 + 1) / 3, QuarterPct: 100.0 / 3, HalfPct: 200.0 / 3, Count: 3},
		},
		{
			name:   "single miss",
			pred:   []float64{5},
			actual: []float64{4},
			want:   Metrics{MAE: 1, MSE: 1, QuarterPct: 0, HalfPct: 0, Count: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.pred, tt.actual)
			if got.Count != tt.want.Count {
				t.Fatalf("Count = %d, want %d", got.Count, tt.want.Count)
			}
			for _, c := range []struct {
				field     string
				got, want float64
			}{
				{"MAE", got.MAE, tt.want.MAE},
				{"MSE", got.MSE, tt.want.MSE},
				{"QuarterPct", got.QuarterPct, tt.want.QuarterPct},
				{"HalfPct", got.HalfPct, tt.want.HalfPct},
			} {
				if math.Abs(c.got-c.want) > 1e-9 {
					t.Errorf("%s = %v, want %v", c.field, c.got, c.want)
				}
			}
		})
	}
}

func TestSummarizeEmptyIsJSONSafe(t *testing.T) {
	m := Summarize(nil, nil)
	if !m.Empty() {
		t.Fatalf("expected empty metrics, got %+v", m)
	}
	if _, err := json.Marshal(m); err != nil {
		t.Errorf("empty metrics should marshal: %v", err)
	}
}
