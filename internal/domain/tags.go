package domain

import "fmt"

// Technique selects how a user's taste is modelled.
type Technique string

const (
	TechniqueContentBased  Technique = "cbf"
	TechniqueCollaborative Technique = "collab-filt"
	TechniqueHybrid        Technique = "hybrid"
)

func ParseTechnique(s string) (Technique, error) {
	switch t := Technique(s); t {
	case TechniqueContentBased, TechniqueCollaborative, TechniqueHybrid:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown technique %q", ErrInvalidConfig, s)
}

// FeatureSelection names the strategy that turns the beer description into
// numeric columns.
type FeatureSelection string

const (
	FeatureSimple      FeatureSelection = "simple"
	FeatureCatEncoding FeatureSelection = "cat-encoding"
	FeatureCountVect   FeatureSelection = "count-vect"
	FeatureTfidfVect   FeatureSelection = "tfidf-vect"
)

func ParseFeatureSelection(s string) (FeatureSelection, error) {
	switch f := FeatureSelection(s); f {
	case FeatureSimple, FeatureCatEncoding, FeatureCountVect, FeatureTfidfVect:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown feature selection %q", ErrInvalidConfig, s)
}

// Algorithm is the penalty variant of the linear regression.
type Algorithm string

const (
	AlgorithmLasso      Algorithm = "Lasso"
	AlgorithmRidge      Algorithm = "Ridge"
	AlgorithmElasticNet Algorithm = "ElasticNet"
)

func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case AlgorithmLasso, AlgorithmRidge, AlgorithmElasticNet:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, s)
}
