package frame

import (
	"math"
	"testing"
)

func sample() *Frame {
	return New(4).
		AddText("name", []string{"b", "a", "b", "a"}).
		AddFloat("x", []float64{1, 2, 1, math.NaN()}).
		AddFloat("y", []float64{10, 20, 10, 40})
}

func TestDropAndFilter(t *testing.T) {
	f := sample().Drop("y")
	if f.Has("y") {
		t.Error("y should be dropped")
	}
	a := f.Filter(func(i int) bool { return f.Text("name")[i] == "a" })
	if a.Len() != 2 {
		t.Fatalf("expected 2 rows for a, got %d", a.Len())
	}
	if a.Float("x")[0] != 2 {
		t.Errorf("expected row alignment to keep x=2, got %v", a.Float("x")[0])
	}
}

func TestImputeMean(t *testing.T) {
	f := sample().ImputeMean("x")
	got := f.Float("x")[3]
	want := (1.0 + 2.0 + 1.0) / 3.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected imputed %v, got %v", want, got)
	}
	if !math.IsNaN(sample().Float("x")[3]) {
		t.Error("ImputeMean must not modify the source frame")
	}
}

func TestGroupMean(t *testing.T) {
	g := sample().GroupMean("name")
	if g.Len() != 2 {
		t.Fatalf("expected 2 groups, got %d", g.Len())
	}
	if g.Text("name")[0] != "a" {
		t.Errorf("groups should be sorted, got %v", g.Text("name"))
	}
	if g.Float("x")[0] != 2 {
		t.Errorf("NaN should be skipped in group mean, got %v", g.Float("x")[0])
	}
	if g.Float("y")[0] != 30 {
		t.Errorf("expected y mean 30, got %v", g.Float("y")[0])
	}
}

func TestMatrixFillsMissingColumns(t *testing.T) {
	m := sample().Matrix([]string{"y", "nope"})
	if len(m) != 4 || len(m[0]) != 2 {
		t.Fatalf("unexpected shape %dx%d", len(m), len(m[0]))
	}
	if m[1][0] != 20 || m[1][1] != 0 {
		t.Errorf("unexpected row %v", m[1])
	}
	if miss := sample().Missing([]string{"x", "nope", "name"}); len(miss) != 2 {
		t.Errorf("expected 2 missing numeric columns, got %v", miss)
	}
}

func TestAddFloatPanicsOnLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on length mismatch")
		}
	}()
	New(2).AddFloat("x", []float64{1})
}

