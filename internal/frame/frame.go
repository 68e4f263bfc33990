// Package frame is a small column oriented table used to move ratings through
// feature preparation and model fitting. Columns are either float or text and
// all columns share one row count.
package frame

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

type column struct {
	num  []float64
	text []string
}

func (c *column) isText() bool { return c.text != nil }

type Frame struct {
	n     int
	names []string
	cols  map[string]*column
}

// New returns an empty frame with n rows.
func New(n int) *Frame {
	return &Frame{n: n, cols: make(map[string]*column)}
}

func (f *Frame) Len() int { return f.n }

// Names returns column names in insertion order.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// FloatNames returns the names of numeric columns in insertion order.
func (f *Frame) FloatNames() []string {
	var out []string
	for _, name := range f.names {
		if !f.cols[name].isText() {
			out = append(out, name)
		}
	}
	return out
}

func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Float returns the values of a numeric column, or nil.
func (f *Frame) Float(name string) []float64 {
	c, ok := f.cols[name]
	if !ok || c.isText() {
		return nil
	}
	return c.num
}

// Text returns the values of a text column, or nil.
func (f *Frame) Text(name string) []string {
	c, ok := f.cols[name]
	if !ok || !c.isText() {
		return nil
	}
	return c.text
}

// AddFloat sets a numeric column. It panics when the length does not match.
func (f *Frame) AddFloat(name string, vals []float64) *Frame {
	f.checkLen(name, len(vals))
	f.set(name, &column{num: vals})
	return f
}

// AddText sets a text column. It panics when the length does not match.
func (f *Frame) AddText(name string, vals []string) *Frame {
	f.checkLen(name, len(vals))
	if vals == nil {
		vals = []string{}
	}
	f.set(name, &column{text: vals})
	return f
}

func (f *Frame) checkLen(name string, n int) {
	if n != f.n {
		panic(fmt.Sprintf("frame: column %q has %d rows, frame has %d", name, n, f.n))
	}
}

func (f *Frame) set(name string, c *column) {
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = c
}

// Drop returns a copy without the named columns.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	out := New(f.n)
	for _, name := range f.names {
		if skip[name] {
			continue
		}
		out.set(name, f.cols[name])
	}
	return out
}

// Filter returns the rows for which keep returns true, in order.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	var idx []int
	for i := 0; i < f.n; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Rows(idx)
}

// Rows returns a frame made of the given row indices.
func (f *Frame) Rows(idx []int) *Frame {
	out := New(len(idx))
	for _, name := range f.names {
		c := f.cols[name]
		if c.isText() {
			vals := make([]string, len(idx))
			for j, i := range idx {
				vals[j] = c.text[i]
			}
			out.set(name, &column{text: vals})
			continue
		}
		vals := make([]float64, len(idx))
		for j, i := range idx {
			vals[j] = c.num[i]
		}
		out.set(name, &column{num: vals})
	}
	return out
}

// Matrix returns the named columns as row-major data. Columns the frame does
// not have are filled with zeros so that a model can be applied to a frame
// whose vocabulary differs from the one it was trained on.
func (f *Frame) Matrix(names []string) [][]float64 {
	rows := make([][]float64, f.n)
	for i := range rows {
		rows[i] = make([]float64, len(names))
	}
	for j, name := range names {
		vals := f.Float(name)
		if vals == nil {
			continue
		}
		for i := range rows {
			rows[i][j] = vals[i]
		}
	}
	return rows
}

// Missing lists the names that are not numeric columns of f.
func (f *Frame) Missing(names []string) []string {
	var out []string
	for _, n := range names {
		if f.Float(n) == nil {
			out = append(out, n)
		}
	}
	return out
}

// ImputeMean returns a copy where NaNs in the named numeric columns are
// replaced by the mean of the column's other values (0 when all are NaN).
func (f *Frame) ImputeMean(names ...string) *Frame {
	out := f.Drop()
	for _, name := range names {
		vals := f.Float(name)
		if vals == nil {
			continue
		}
		mean := nanMean(vals)
		if math.IsNaN(mean) {
			mean = 0
		}
		filled := make([]float64, len(vals))
		for i, v := range vals {
			if math.IsNaN(v) {
				v = mean
			}
			filled[i] = v
		}
		out.set(name, &column{num: filled})
	}
	return out
}

// GroupMean groups rows by a text column and averages every numeric column,
// ignoring NaNs. Groups come out sorted by key; other text columns are dropped.
func (f *Frame) GroupMean(key string) *Frame {
	keys := f.Text(key)
	groups := make(map[string][]int)
	var order []string
	for i, k := range keys {
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	sort.Strings(order)

	out := New(len(order))
	out.AddText(key, order)
	for _, name := range f.FloatNames() {
		vals := f.Float(name)
		means := make([]float64, len(order))
		for g, k := range order {
			sub := make([]float64, 0, len(groups[k]))
			for _, i := range groups[k] {
				sub = append(sub, vals[i])
			}
			means[g] = nanMean(sub)
		}
		out.AddFloat(name, means)
	}
	return out
}

func nanMean(vals []float64) float64 {
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	return stat.Mean(clean, nil)
}
