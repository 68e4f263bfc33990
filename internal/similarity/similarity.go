// Package similarity builds user-item rating matrices and ranks users by
// cosine similarity to a reference user.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
)

// FillMethod decides what goes into cells a user never rated.
type FillMethod string

const (
	FillZero     FillMethod = "zero"
	FillItemMean FillMethod = "item-mean"
	FillUserMean FillMethod = "user-mean"
)

// Matrix has users as rows and beers as columns, both sorted. Cells hold the
// mean rating a user gave a beer.
type Matrix struct {
	Users  []string
	Items  []string
	Values [][]float64
	index  map[string]int
}

// BuildMatrix pivots ratings into a user-item matrix. The column set is every
// beer present in rs.
func BuildMatrix(rs []domain.Rating, fill FillMethod) (*Matrix, error) {
	switch fill {
	case FillZero, FillItemMean, FillUserMean:
	default:
		return nil, fmt.Errorf("%w: unknown fill method %q", domain.ErrInvalidConfig, fill)
	}

	users := make(map[string]struct{})
	items := make(map[string]struct{})
	for _, r := range rs {
		users[r.Username] = struct{}{}
		items[r.BeerName] = struct{}{}
	}
	m := &Matrix{
		Users: sortedKeys(users),
		Items: sortedKeys(items),
		index: make(map[string]int, len(users)),
	}
	for i, u := range m.Users {
		m.index[u] = i
	}
	col := make(map[string]int, len(m.Items))
	for j, it := range m.Items {
		col[it] = j
	}

	sums := make([][]float64, len(m.Users))
	counts := make([][]int, len(m.Users))
	for i := range sums {
		sums[i] = make([]float64, len(m.Items))
		counts[i] = make([]int, len(m.Items))
	}
	for _, r := range rs {
		if math.IsNaN(r.UserRating) {
			continue
		}
		i, j := m.index[r.Username], col[r.BeerName]
		sums[i][j] += r.UserRating
		counts[i][j]++
	}

	m.Values = make([][]float64, len(m.Users))
	for i := range m.Values {
		m.Values[i] = make([]float64, len(m.Items))
		for j := range m.Values[i] {
			if counts[i][j] > 0 {
				m.Values[i][j] = sums[i][j] / float64(counts[i][j])
			} else {
				m.Values[i][j] = math.NaN()
			}
		}
	}
	m.fill(fill)
	return m, nil
}

func (m *Matrix) fill(method FillMethod) {
	switch method {
	case FillZero:
		for _, row := range m.Values {
			replaceNaN(row, func(int) float64 { return 0 })
		}
	case FillUserMean:
		for _, row := range m.Values {
			mean := nanMean(row)
			replaceNaN(row, func(int) float64 { return mean })
		}
	case FillItemMean:
		means := make([]float64, len(m.Items))
		col := make([]float64, len(m.Users))
		for j := range m.Items {
			for i := range m.Users {
				col[i] = m.Values[i][j]
			}
			means[j] = nanMean(col)
		}
		for _, row := range m.Values {
			replaceNaN(row, func(j int) float64 { return means[j] })
		}
	}
}

func replaceNaN(row []float64, with func(j int) float64) {
	for j, v := range row {
		if math.IsNaN(v) {
			row[j] = with(j)
		}
	}
}

// nanMean averages the non NaN values, 0 when there are none.
func nanMean(vals []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Row returns the rating vector of a user.
func (m *Matrix) Row(user string) ([]float64, bool) {
	i, ok := m.index[user]
	if !ok {
		return nil, false
	}
	return m.Values[i], true
}

// Cosine is the cosine of the angle between a and b; 0 if either is all zeros.
func Cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

type Neighbor struct {
	Rank       int     `json:"rank"`
	Username   string  `json:"username"`
	Similarity float64 `json:"similarity"`
}

// Rank orders every other user by descending similarity to target. Ties keep
// matrix row order. Rank 1 is the most similar user.
func Rank(m *Matrix, target string) ([]Neighbor, error) {
	ref, ok := m.Row(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, target)
	}

	out := make([]Neighbor, 0, len(m.Users)-1)
	for i, u := range m.Users {
		if u == target {
			continue
		}
		out = append(out, Neighbor{Username: u, Similarity: Cosine(ref, m.Values[i])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// RankUsers builds a zero filled matrix from rs and ranks users against target.
func RankUsers(rs []domain.Rating, target string) ([]Neighbor, error) {
	m, err := BuildMatrix(rs, FillZero)
	if err != nil {
		return nil, err
	}
	return Rank(m, target)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
