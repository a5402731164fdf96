package training

import (
	"math"
	"sort"
	"time"

	"github.com/veripay/riskengine/pkg/models"
)

// featureCount is the fixed length of every sample's feature vector:
// amount, hour of day, account age in days, amount percentile within the
// training set, and the user's transaction count within the set.
const featureCount = 5

// sample is one labeled training example.
type sample struct {
	features []float64
	isFraud  bool
	created  time.Time
}

// buildSamples converts labeled transactions into fixed-length feature
// vectors. Transactions must be ordered oldest first; the order is
// preserved so the chronological validation split stays honest.
func buildSamples(txs []models.Transaction) []sample {
	amounts := make([]float64, len(txs))
	userCounts := make(map[string]int, len(txs))
	for i, tx := range txs {
		amounts[i], _ = tx.Amount.Float64()
		userCounts[tx.UserID]++
	}

	sorted := append([]float64(nil), amounts...)
	sort.Float64s(sorted)

	samples := make([]sample, len(txs))
	for i, tx := range txs {
		accountAge := 0.0
		if !tx.AccountCreatedAt.IsZero() {
			accountAge = tx.CreatedAt.Sub(tx.AccountCreatedAt).Hours() / 24
			if accountAge < 0 {
				accountAge = 0
			}
		}
		samples[i] = sample{
			features: []float64{
				amounts[i],
				float64(tx.CreatedAt.Hour()),
				accountAge,
				percentile(sorted, amounts[i]),
				float64(userCounts[tx.UserID]),
			},
			isFraud: isFraudLabel(tx),
			created: tx.CreatedAt,
		}
	}
	return samples
}

// isFraudLabel derives the supervision signal from the payment outcome:
// blocked transactions, and reviewed transactions that went on to fail.
func isFraudLabel(tx models.Transaction) bool {
	if tx.Outcome == models.OutcomeBlocked {
		return true
	}
	return tx.ReviewRequired && tx.Outcome == models.OutcomeFailed
}

// percentile returns v's rank in the sorted slice as a fraction in [0,1].
func percentile(sorted []float64, v float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := sort.SearchFloat64s(sorted, v)
	return float64(idx) / float64(len(sorted))
}

// standardize rescales each feature column to zero mean and unit variance
// using statistics from the training rows only, then applies them to all
// rows. Keeps gradient descent stable across wildly different feature
// scales.
func standardize(samples []sample, trainCount int) {
	if trainCount == 0 {
		return
	}
	for j := 0; j < featureCount; j++ {
		mean := 0.0
		for i := 0; i < trainCount; i++ {
			mean += samples[i].features[j]
		}
		mean /= float64(trainCount)

		variance := 0.0
		for i := 0; i < trainCount; i++ {
			d := samples[i].features[j] - mean
			variance += d * d
		}
		stddev := math.Sqrt(variance / float64(trainCount))
		if stddev < 1e-9 {
			stddev = 1
		}

		for i := range samples {
			samples[i].features[j] = (samples[i].features[j] - mean) / stddev
		}
	}
}
