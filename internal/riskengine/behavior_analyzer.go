package riskengine

import (
	"context"

	"github.com/veripay/riskengine/internal/profile"
	"github.com/veripay/riskengine/pkg/models"
)

// newUserBehaviorScore applies to users without any behavioral profile yet.
const newUserBehaviorScore = 25

// BehaviorAnalyzer scores how consistent the transaction is with the user's
// historical session types and locations. The profile itself is updated by
// the engine after scoring completes.
type BehaviorAnalyzer struct {
	profiles *profile.Store
}

// NewBehaviorAnalyzer creates the behavioral-consistency analyzer.
func NewBehaviorAnalyzer(profiles *profile.Store) *BehaviorAnalyzer {
	return &BehaviorAnalyzer{profiles: profiles}
}

func (a *BehaviorAnalyzer) Name() string { return "behavior_history" }

func (a *BehaviorAnalyzer) Analyze(ctx context.Context, tx models.TransactionContext) (models.FactorScore, error) {
	prof, ok := a.profiles.Lookup(ctx, tx.UserID)
	if !ok {
		return models.FactorScore{
			Score:   newUserBehaviorScore,
			Reasons: []string{"no behavioral history for user"},
		}, nil
	}

	var fs models.FactorScore
	if tx.SessionType != "" {
		if _, known := prof.PreferredSessionTypes[tx.SessionType]; !known {
			fs.Score += 20
			fs.Reasons = append(fs.Reasons, "unusual session type for user")
		}
	}
	if loc := profile.LocationFromIP(tx.IPAddress); loc != "" {
		if _, known := prof.KnownLocations[loc]; !known {
			fs.Score += 30
			fs.Reasons = append(fs.Reasons, "transaction from unfamiliar location")
		}
	}
	if fs.Score > 80 {
		fs.Score = 80
	}
	return fs, nil
}
