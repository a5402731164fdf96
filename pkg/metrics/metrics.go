package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DecisionsTotal counts risk decisions by outcome (allow/review/block).
var DecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "riskengine_decisions_total",
		Help: "Total number of risk decisions by outcome",
	},
	[]string{"decision"},
)

// ScoringLatency records latency distribution for full scoring passes.
var ScoringLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "riskengine_scoring_latency_seconds",
		Help:    "Latency in seconds for one full risk analysis",
		Buckets: prometheus.DefBuckets,
	},
)

// AnalyzerFailures counts analyzers that fell back to their default score.
var AnalyzerFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "riskengine_analyzer_failures_total",
		Help: "Total analyzer failures replaced by the default sub-score",
	},
	[]string{"analyzer"},
)

// BlocklistHits counts scoring calls short-circuited by a blocklist match.
var BlocklistHits = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "riskengine_blocklist_hits_total",
		Help: "Total scoring calls short-circuited by a blocklist match",
	},
)

// TrainingRuns counts trainer runs by result (deployed/rejected/failed/skipped).
var TrainingRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "riskengine_training_runs_total",
		Help: "Total model training runs by result",
	},
	[]string{"result"},
)

// EnforcementActions counts enforcement outcomes (blocked users, cancelled sessions).
var EnforcementActions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "riskengine_enforcement_actions_total",
		Help: "Total enforcement actions by type",
	},
	[]string{"action"},
)

func init() {
	prometheus.MustRegister(DecisionsTotal, ScoringLatency, AnalyzerFailures)
	prometheus.MustRegister(BlocklistHits, TrainingRuns, EnforcementActions)
}
