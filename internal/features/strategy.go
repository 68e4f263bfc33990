// Package features turns the free text beer description into numeric columns.
//
// Every variant implements Strategy. A strategy is fitted on the frame it is
// given, so the same rows always produce the same columns in the same order.
package features

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/frame"
)

// Strategy replaces textCol of f with numeric columns, keeping row alignment.
type Strategy interface {
	Selection() domain.FeatureSelection
	Transform(f *frame.Frame, textCol string) (*frame.Frame, error)
}

// ForSelection returns the strategy for a tag. Unknown tags are a
// configuration error on every path, training and inference alike.
func ForSelection(sel domain.FeatureSelection) (Strategy, error) {
	switch sel {
	case domain.FeatureSimple:
		return Simple{}, nil
	case domain.FeatureCatEncoding:
		return CategoricalEncoding{}, nil
	case domain.FeatureCountVect:
		return CountVector{}, nil
	case domain.FeatureTfidfVect:
		return TfidfVector{}, nil
	}
	return nil, fmt.Errorf("%w: unknown feature selection %q", domain.ErrInvalidConfig, sel)
}

func textColumn(f *frame.Frame, col string) ([]string, error) {
	vals := f.Text(col)
	if vals == nil && f.Len() > 0 {
		return nil, fmt.Errorf("text column %q not found", col)
	}
	return vals, nil
}

// Simple drops the description and keeps numeric columns as they are.
type Simple struct{}

func (Simple) Selection() domain.FeatureSelection { return domain.FeatureSimple }

func (Simple) Transform(f *frame.Frame, textCol string) (*frame.Frame, error) {
	return f.Drop(textCol), nil
}

// CategoricalEncoding one-hot encodes distinct description values. Levels are
// sorted and the first one is dropped.
type CategoricalEncoding struct{}

func (CategoricalEncoding) Selection() domain.FeatureSelection { return domain.FeatureCatEncoding }

func (CategoricalEncoding) Transform(f *frame.Frame, textCol string) (*frame.Frame, error) {
	vals, err := textColumn(f, textCol)
	if err != nil {
		return nil, err
	}

	levels := distinct(vals)
	out := f.Drop(textCol)
	if len(levels) < 2 {
		return out, nil
	}
	for _, level := range levels[1:] {
		col := make([]float64, f.Len())
		for i, v := range vals {
			if v == level {
				col[i] = 1
			}
		}
		out.AddFloat(textCol+"_"+level, col)
	}
	return out, nil
}

func distinct(vals []string) []string {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// tokenPattern matches runs of two or more letters, digits or underscores.
// RE2's \w is ASCII only.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

func tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// vocabulary tokenizes every document and returns per-document counts and the
// sorted vocabulary.
func vocabulary(docs []string) ([]map[string]int, []string) {
	counts := make([]map[string]int, len(docs))
	vocab := make(map[string]struct{})
	for i, d := range docs {
		counts[i] = make(map[string]int)
		for _, tok := range tokenize(d) {
			counts[i][tok]++
			vocab[tok] = struct{}{}
		}
	}
	terms := make([]string, 0, len(vocab))
	for t := range vocab {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return counts, terms
}
