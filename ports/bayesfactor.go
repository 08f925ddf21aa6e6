package ports

import (
	"gobfda/domain/bfda"
)

// Statistic is the observed test statistic at one checkpoint. For t-tests Value is
// the t statistic and N the per-group (t.between) or pair count; for correlations
// Value is Pearson's r over N pairs.
type Statistic struct {
	N     int
	Value float64
}

// BayesFactorEvaluator turns an observed statistic into log BF10 for a fixed
// design, prior and alternative. Implementations must be safe for concurrent use.
type BayesFactorEvaluator interface {
	LogBF10(stat Statistic) (float64, error)
}

// EvaluatorFactory builds the evaluator for a design, prior and alternative. It
// returns a configuration error for unsupported or invalid combinations.
type EvaluatorFactory func(test bfda.TestType, prior bfda.Prior, alt bfda.Alternative) (BayesFactorEvaluator, error)
