package riskengine

import (
	"context"

	"github.com/veripay/riskengine/pkg/models"
)

// TimeAnalyzer scores transactions by local hour of day. Fraudulent activity
// clusters in the dead of night.
type TimeAnalyzer struct{}

// NewTimeAnalyzer creates the time-of-day analyzer.
func NewTimeAnalyzer() *TimeAnalyzer { return &TimeAnalyzer{} }

func (a *TimeAnalyzer) Name() string { return "time_pattern" }

func (a *TimeAnalyzer) Analyze(_ context.Context, tx models.TransactionContext) (models.FactorScore, error) {
	hour := tx.Timestamp.Hour()
	switch {
	case hour == 23 || hour < 5:
		return models.FactorScore{Score: 60, Reasons: []string{"transaction at unusual hours"}}, nil
	case hour < 7:
		return models.FactorScore{Score: 30, Reasons: []string{"transaction in early morning"}}, nil
	default:
		return models.FactorScore{Score: 10}, nil
	}
}
