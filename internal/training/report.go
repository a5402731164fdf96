package training

import (
	"fmt"

	"github.com/veripay/riskengine/pkg/models"
)

// Report is the structured outcome of one training run.
type Report struct {
	Result          string                   `json:"result"`
	Version         string                   `json:"version,omitempty"`
	SampleCount     int                      `json:"sample_count"`
	HoldoutCount    int                      `json:"holdout_count,omitempty"`
	Metrics         models.ValidationMetrics `json:"metrics,omitempty"`
	Formatted       map[string]string        `json:"formatted,omitempty"`
	Improvements    map[string]float64       `json:"improvements,omitempty"`
	Recommendations []string                 `json:"recommendations,omitempty"`
}

// buildReport assembles the run report: the deployment verdict, formatted
// percentages, deltas versus the previously deployed metrics and
// qualitative recommendations.
func buildReport(version string, sampleCount, holdoutCount int, m, previous models.ValidationMetrics, deployThreshold float64) *Report {
	result := ResultRejected
	if m.Precision >= deployThreshold && m.Recall >= deployThreshold && m.F1Score >= deployThreshold {
		result = ResultDeployed
	}

	report := &Report{
		Result:       result,
		Version:      version,
		SampleCount:  sampleCount,
		HoldoutCount: holdoutCount,
		Metrics:      m,
		Formatted: map[string]string{
			"precision":           fmt.Sprintf("%.1f%%", m.Precision*100),
			"recall":              fmt.Sprintf("%.1f%%", m.Recall*100),
			"f1_score":            fmt.Sprintf("%.1f%%", m.F1Score*100),
			"false_positive_rate": fmt.Sprintf("%.1f%%", m.FalsePositiveRate*100),
			"accuracy":            fmt.Sprintf("%.1f%%", m.Accuracy*100),
		},
		Improvements: map[string]float64{
			"precision": m.Precision - previous.Precision,
			"recall":    m.Recall - previous.Recall,
			"f1_score":  m.F1Score - previous.F1Score,
		},
		Recommendations: recommend(m),
	}
	return report
}

// recommend derives qualitative follow-ups from the validated metrics.
func recommend(m models.ValidationMetrics) []string {
	var recs []string
	if m.Precision < 0.9 {
		recs = append(recs, "precision below 90%: consider adding features to reduce false alarms")
	}
	if m.Recall < 0.9 {
		recs = append(recs, "recall below 90%: review labeling window, fraud cases may be missed")
	}
	if m.FalsePositiveRate > 0.05 {
		recs = append(recs, "false positive rate above 5%: review decision threshold before any live rollout")
	}
	if len(recs) == 0 {
		recs = append(recs, "model quality nominal, continue weekly retraining cadence")
	}
	return recs
}
