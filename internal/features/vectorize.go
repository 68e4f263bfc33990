package features

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/frame"
)

// CountVector adds one raw token count column per vocabulary term.
type CountVector struct{}

func (CountVector) Selection() domain.FeatureSelection { return domain.FeatureCountVect }

func (CountVector) Transform(f *frame.Frame, textCol string) (*frame.Frame, error) {
	docs, err := textColumn(f, textCol)
	if err != nil {
		return nil, err
	}
	counts, terms := vocabulary(docs)

	out := f.Drop(textCol)
	for _, term := range terms {
		col := make([]float64, f.Len())
		for i := range docs {
			col[i] = float64(counts[i][term])
		}
		out.AddFloat(textCol+"_"+term, col)
	}
	return out, nil
}

// TfidfVector weights token counts by smoothed inverse document frequency,
// idf = ln((1+n)/(1+df)) + 1, and L2 normalises every row.
type TfidfVector struct{}

func (TfidfVector) Selection() domain.FeatureSelection { return domain.FeatureTfidfVect }

func (TfidfVector) Transform(f *frame.Frame, textCol string) (*frame.Frame, error) {
	docs, err := textColumn(f, textCol)
	if err != nil {
		return nil, err
	}
	counts, terms := vocabulary(docs)
	n := float64(len(docs))

	// weights[i][j] is the tf-idf of term j in document i.
	weights := make([][]float64, len(docs))
	for i := range weights {
		weights[i] = make([]float64, len(terms))
	}
	for j, term := range terms {
		df := 0.0
		for i := range docs {
			if counts[i][term] > 0 {
				df++
			}
		}
		idf := math.Log((1+n)/(1+df)) + 1
		for i := range docs {
			weights[i][j] = float64(counts[i][term]) * idf
		}
	}
	for _, row := range weights {
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}

	out := f.Drop(textCol)
	for j, term := range terms {
		col := make([]float64, f.Len())
		for i := range docs {
			col[i] = weights[i][j]
		}
		out.AddFloat(textCol+"_"+term, col)
	}
	return out, nil
}
