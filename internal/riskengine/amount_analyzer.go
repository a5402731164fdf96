package riskengine

import (
	"context"
	"fmt"
	"math"

	"github.com/veripay/riskengine/internal/profile"
	"github.com/veripay/riskengine/pkg/models"
)

// minHistoryForDeviation is the paid-transaction count below which a user is
// scored with the conservative new-user default instead of their own stats.
const minHistoryForDeviation = 5

// newUserAmountScore is the conservative default for users without enough
// history to compute a meaningful deviation.
const newUserAmountScore = 30

// AmountAnalyzer scores how far a transaction amount deviates from the
// user's own historical distribution.
type AmountAnalyzer struct {
	profiles *profile.Store
}

// NewAmountAnalyzer creates the amount-deviation analyzer.
func NewAmountAnalyzer(profiles *profile.Store) *AmountAnalyzer {
	return &AmountAnalyzer{profiles: profiles}
}

func (a *AmountAnalyzer) Name() string { return "amount_deviation" }

func (a *AmountAnalyzer) Analyze(ctx context.Context, tx models.TransactionContext) (models.FactorScore, error) {
	prof, ok := a.profiles.Lookup(ctx, tx.UserID)
	if !ok || prof.TransactionCount < minHistoryForDeviation {
		return models.FactorScore{
			Score:   newUserAmountScore,
			Reasons: []string{"insufficient history for amount baseline"},
		}, nil
	}

	amount, _ := tx.Amount.Float64()
	stddev := prof.StandardDeviation
	if stddev < 1e-9 {
		// Degenerate history (identical amounts); fall back to a spread
		// proportional to the average so the deviation stays finite.
		stddev = math.Max(prof.AverageAmount*0.1, 1)
	}
	deviation := math.Abs(amount-prof.AverageAmount) / stddev

	switch {
	case deviation > 3:
		return models.FactorScore{
			Score: math.Min(80, 40+deviation*10),
			Reasons: []string{fmt.Sprintf("amount deviates %.1f stddev from user average %.2f",
				deviation, prof.AverageAmount)},
		}, nil
	case amount > 5*prof.AverageAmount:
		return models.FactorScore{
			Score: 70,
			Reasons: []string{fmt.Sprintf("amount %.2f exceeds 5x user average %.2f",
				amount, prof.AverageAmount)},
		}, nil
	default:
		return models.FactorScore{Score: math.Min(50, deviation*15)}, nil
	}
}
