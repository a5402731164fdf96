package riskengine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/audit"
	"github.com/veripay/riskengine/internal/blocklist"
	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/internal/profile"
	"github.com/veripay/riskengine/pkg/metrics"
	"github.com/veripay/riskengine/pkg/models"
)

// staticModelVersion identifies the rule-based scorer. Reported on analyses
// until a trained shadow model is deployed.
const staticModelVersion = "rules-v1"

// defaultLatencyBudget is the soft per-analysis latency target. Overruns
// are logged as warnings, not enforced as timeouts.
const defaultLatencyBudget = 2 * time.Second

// ModelInfo exposes the currently deployed shadow model to the engine's
// reporting surface. Implemented by the trainer.
type ModelInfo interface {
	ModelVersion() string
	ModelMetrics() models.ValidationMetrics
}

// Engine is the transaction risk-scoring pipeline. All collaborators are
// injected; the engine holds no package-level state.
type Engine struct {
	analyzers     []Analyzer
	profiles      *profile.Store
	blocklist     blocklist.Blocklist
	enforcer      *Enforcer
	sink          audit.Sink
	modelInfo     ModelInfo
	logger        *zap.Logger
	latencyBudget time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLatencyBudget overrides the soft scoring latency target.
func WithLatencyBudget(d time.Duration) Option {
	return func(e *Engine) { e.latencyBudget = d }
}

// WithModelInfo attaches the deployed shadow model's reporting surface.
func WithModelInfo(mi ModelInfo) Option {
	return func(e *Engine) { e.modelInfo = mi }
}

// New creates an engine with the standard six analyzers in weight order.
func New(profiles *profile.Store, bl blocklist.Blocklist, hist history.Store, sink audit.Sink, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		analyzers: []Analyzer{
			NewAmountAnalyzer(profiles),
			NewTimeAnalyzer(),
			NewFrequencyAnalyzer(hist),
			NewDeviceAnalyzer(profiles, hist),
			NewBehaviorAnalyzer(profiles),
			NewExternalAnalyzer(bl, logger),
		},
		profiles:      profiles,
		blocklist:     bl,
		enforcer:      NewEnforcer(bl, hist, sink, logger),
		sink:          sink,
		logger:        logger,
		latencyBudget: defaultLatencyBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze scores one transaction and always returns a decision. This is the
// single fail-open boundary: any fault escaping the pipeline, including
// panics, is converted into an ALLOW result here so the engine's own errors
// can never block a payment.
func (e *Engine) Analyze(ctx context.Context, tx models.TransactionContext) (analysis *models.RiskAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("risk analysis panicked, failing open",
				zap.String("user_id", tx.UserID), zap.Any("panic", r))
			analysis = e.failOpen(tx)
		}
	}()

	result, err := e.analyze(ctx, tx)
	if err != nil {
		e.logger.Error("risk analysis failed, failing open",
			zap.String("user_id", tx.UserID), zap.Error(err))
		return e.failOpen(tx)
	}
	return result
}

// analyze runs the scoring pipeline and reports faults to the fail-open
// boundary instead of hiding them.
func (e *Engine) analyze(ctx context.Context, tx models.TransactionContext) (*models.RiskAnalysis, error) {
	start := time.Now()

	blocked, err := e.checkBlocklist(ctx, tx)
	if err != nil {
		// Blocklist unavailable: log and continue scoring. The external
		// analyzer applies the same fail-open rule for pattern checks.
		e.logger.Warn("blocklist pre-check failed", zap.Error(err))
	}
	if blocked {
		analysis := e.newAnalysis(tx, start)
		analysis.Factors = models.FactorScores{ExternalDatabase: 100}
		analysis.Score = 100
		analysis.Decision = models.DecisionBlock
		analysis.Reasons = []string{"blocked"}
		metrics.BlocklistHits.Inc()
		e.finish(ctx, tx, analysis, start, false)
		return analysis, nil
	}

	var factors models.FactorScores
	var reasons []string
	targets := []*float64{
		&factors.AmountDeviation,
		&factors.TimePattern,
		&factors.Frequency,
		&factors.DeviceFingerprint,
		&factors.BehaviorHistory,
		&factors.ExternalDatabase,
	}
	for i, a := range e.analyzers {
		fs := runAnalyzer(ctx, a, tx, e.logger)
		*targets[i] = fs.Score
		reasons = append(reasons, fs.Reasons...)
	}

	analysis := e.newAnalysis(tx, start)
	analysis.Factors = factors
	analysis.Score = Aggregate(factors)
	analysis.Decision = Decide(analysis.Score)
	analysis.Reasons = reasons

	e.finish(ctx, tx, analysis, start, true)
	return analysis, nil
}

// finish runs the post-scoring steps common to both pipeline paths:
// enforcement on BLOCK, the profile upsert (strictly after scoring, so a
// transaction never biases its own factors), the audit append and metrics.
func (e *Engine) finish(ctx context.Context, tx models.TransactionContext, analysis *models.RiskAnalysis, start time.Time, updateProfile bool) {
	if analysis.Decision == models.DecisionBlock {
		e.enforcer.Enforce(ctx, tx, analysis)
	}
	if updateProfile {
		e.profiles.Record(tx)
	}

	analysis.ProcessingTime = time.Since(start).Milliseconds()

	entry := &audit.Entry{
		Type:        audit.EntryRiskAnalysis,
		UserID:      tx.UserID,
		Description: fmt.Sprintf("risk analysis: score %d, decision %s", analysis.Score, analysis.Decision),
		Payload:     audit.MarshalPayload(analysis),
	}
	if err := e.sink.Append(ctx, entry); err != nil {
		e.logger.Error("failed to write analysis audit entry",
			zap.String("user_id", tx.UserID), zap.Error(err))
	}

	elapsed := time.Since(start)
	metrics.DecisionsTotal.WithLabelValues(string(analysis.Decision)).Inc()
	metrics.ScoringLatency.Observe(elapsed.Seconds())
	if elapsed > e.latencyBudget {
		e.logger.Warn("risk analysis exceeded latency budget",
			zap.String("user_id", tx.UserID),
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", e.latencyBudget))
	}
}

// checkBlocklist reports whether the user ID or phone number is blocked.
func (e *Engine) checkBlocklist(ctx context.Context, tx models.TransactionContext) (bool, error) {
	if hit, err := e.blocklist.Contains(ctx, tx.UserID); err != nil {
		return false, fmt.Errorf("user blocklist check: %w", err)
	} else if hit {
		return true, nil
	}
	if hit, err := e.blocklist.Contains(ctx, tx.PhoneNumber); err != nil {
		return false, fmt.Errorf("phone blocklist check: %w", err)
	} else if hit {
		return true, nil
	}
	return false, nil
}

// failOpen builds the explicit fail-open ALLOW result.
func (e *Engine) failOpen(tx models.TransactionContext) *models.RiskAnalysis {
	analysis := e.newAnalysis(tx, time.Now())
	analysis.Decision = models.DecisionAllow
	analysis.Reasons = []string{"analysis failed, defaulting to allow"}
	metrics.DecisionsTotal.WithLabelValues(string(models.DecisionAllow)).Inc()
	return analysis
}

func (e *Engine) newAnalysis(tx models.TransactionContext, start time.Time) *models.RiskAnalysis {
	version := staticModelVersion
	if e.modelInfo != nil {
		version = e.modelInfo.ModelVersion()
	}
	return &models.RiskAnalysis{
		ID:           uuid.New(),
		UserID:       tx.UserID,
		SessionID:    tx.SessionID,
		ModelVersion: version,
		Timestamp:    start,
	}
}

// GetMetrics returns the dashboard surface: deployed model version and
// metrics, decision thresholds, blocklist size and profile-cache size.
func (e *Engine) GetMetrics(ctx context.Context) models.EngineMetrics {
	m := models.EngineMetrics{
		ModelVersion:     staticModelVersion,
		BlockThreshold:   BlockThreshold,
		ReviewThreshold:  ReviewThreshold,
		ProfileCacheSize: e.profiles.Size(),
	}
	if e.modelInfo != nil {
		m.ModelVersion = e.modelInfo.ModelVersion()
		m.ModelMetrics = e.modelInfo.ModelMetrics()
	}
	if size, err := e.blocklist.Size(ctx); err != nil {
		e.logger.Warn("failed to read blocklist size", zap.Error(err))
	} else {
		m.BlocklistSize = size
	}
	return m
}
