package riskengine

import (
	"math"

	"github.com/veripay/riskengine/pkg/models"
)

// Factor weights. Compile-time constants summing to 1.0; the model trainer
// monitors quality in shadow and does not adjust them.
const (
	weightAmountDeviation   = 0.25
	weightTimePattern       = 0.20
	weightFrequency         = 0.15
	weightDeviceFingerprint = 0.15
	weightBehaviorHistory   = 0.15
	weightExternalDatabase  = 0.10
)

// Decision thresholds over the aggregate score.
const (
	// BlockThreshold is the aggregate score at or above which a
	// transaction is blocked.
	BlockThreshold = 90
	// ReviewThreshold is the aggregate score at or above which a
	// transaction goes to manual review.
	ReviewThreshold = 70
)

// Aggregate combines the six sub-scores into one 0-100 integer via the
// fixed weights. Pure and deterministic: identical inputs always produce
// identical scores.
func Aggregate(f models.FactorScores) int {
	weighted := f.AmountDeviation*weightAmountDeviation +
		f.TimePattern*weightTimePattern +
		f.Frequency*weightFrequency +
		f.DeviceFingerprint*weightDeviceFingerprint +
		f.BehaviorHistory*weightBehaviorHistory +
		f.ExternalDatabase*weightExternalDatabase

	clamped := math.Min(100, math.Max(0, weighted))
	return int(math.Round(clamped))
}

// Decide maps an aggregate score to a decision. Deterministic over score.
func Decide(score int) models.Decision {
	switch {
	case score >= BlockThreshold:
		return models.DecisionBlock
	case score >= ReviewThreshold:
		return models.DecisionReview
	default:
		return models.DecisionAllow
	}
}
