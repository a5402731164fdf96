package riskengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/pkg/models"
)

// failureWindow is the trailing window inspected for failed payments.
const failureWindow = 10 * time.Minute

// maxDailyCounterparties is the same-day distinct-counterparty count above
// which a flat velocity floor applies.
const maxDailyCounterparties = 3

// FrequencyAnalyzer scores payment velocity: recent failed attempts and
// same-day counterparty spread.
type FrequencyAnalyzer struct {
	history history.TransactionStore
}

// NewFrequencyAnalyzer creates the frequency/velocity analyzer.
func NewFrequencyAnalyzer(hist history.TransactionStore) *FrequencyAnalyzer {
	return &FrequencyAnalyzer{history: hist}
}

func (a *FrequencyAnalyzer) Name() string { return "frequency" }

func (a *FrequencyAnalyzer) Analyze(ctx context.Context, tx models.TransactionContext) (models.FactorScore, error) {
	ts := tx.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	failures, err := a.history.CountFailedSince(ctx, tx.UserID, ts.Add(-failureWindow))
	if err != nil {
		return models.FactorScore{}, fmt.Errorf("failed to count recent failures: %w", err)
	}

	var fs models.FactorScore
	switch {
	case failures >= 3:
		fs = models.FactorScore{
			Score:   90,
			Reasons: []string{fmt.Sprintf("%d failed payments in last 10 minutes", failures)},
		}
	case failures == 2:
		fs = models.FactorScore{
			Score:   60,
			Reasons: []string{"2 failed payments in last 10 minutes"},
		}
	default:
		fs = models.FactorScore{Score: math.Min(30, float64(failures)*15)}
	}

	counterparties, err := a.history.CountCounterpartiesOn(ctx, tx.UserID, ts)
	if err != nil {
		return models.FactorScore{}, fmt.Errorf("failed to count counterparties: %w", err)
	}
	if counterparties > maxDailyCounterparties && fs.Score < 50 {
		fs.Score = 50
		fs.Reasons = append(fs.Reasons,
			fmt.Sprintf("%d distinct counterparties booked today", counterparties))
	}

	return fs, nil
}
