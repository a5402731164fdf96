// Package riskengine implements the transaction risk-scoring pipeline:
// six independent factor analyzers, a fixed-weight aggregator, the
// allow/review/block decision mapping and blocklist enforcement.
package riskengine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veripay/riskengine/pkg/metrics"
	"github.com/veripay/riskengine/pkg/models"
)

// Analyzer is one independent risk-factor scorer. Implementations return a
// sub-score in [0,100] with human-readable reasons. They are read-only with
// respect to shared state; profile updates happen after scoring.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, tx models.TransactionContext) (models.FactorScore, error)
}

// defaultFactorScore replaces a failed analyzer's output so a single
// analyzer fault can never block a payment.
const defaultFactorScore = 50

// runAnalyzer executes one analyzer, converting errors and panics into the
// fixed moderate default.
func runAnalyzer(ctx context.Context, a Analyzer, tx models.TransactionContext, logger *zap.Logger) (score models.FactorScore) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("analyzer panicked, using default score",
				zap.String("analyzer", a.Name()), zap.Any("panic", r))
			metrics.AnalyzerFailures.WithLabelValues(a.Name()).Inc()
			score = models.FactorScore{
				Score:   defaultFactorScore,
				Reasons: []string{fmt.Sprintf("%s analyzer unavailable", a.Name())},
			}
		}
	}()

	score, err := a.Analyze(ctx, tx)
	if err != nil {
		logger.Warn("analyzer failed, using default score",
			zap.String("analyzer", a.Name()), zap.Error(err))
		metrics.AnalyzerFailures.WithLabelValues(a.Name()).Inc()
		return models.FactorScore{
			Score:   defaultFactorScore,
			Reasons: []string{fmt.Sprintf("%s analyzer unavailable", a.Name())},
		}
	}
	return clampFactor(score)
}

func clampFactor(fs models.FactorScore) models.FactorScore {
	if fs.Score < 0 {
		fs.Score = 0
	}
	if fs.Score > 100 {
		fs.Score = 100
	}
	return fs
}
