// Package training implements the offline model-retraining job: a shadow
// logistic-regression classifier fitted on historical payment outcomes,
// validated on a chronological hold-out and deployed only when its quality
// clears a fixed threshold. The trained model monitors scoring quality; it
// does not feed back into the live aggregator's weights.
package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/audit"
	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/pkg/metrics"
	"github.com/veripay/riskengine/pkg/models"
)

// ErrTrainingInProgress is returned when a run is rejected because another
// run holds the guard flag. Overlapping runs are rejected outright, never
// queued.
var ErrTrainingInProgress = errors.New("training already in progress")

// Run results.
const (
	ResultDeployed = "deployed"
	ResultRejected = "rejected"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
)

// State is the trainer's lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateTraining State = "training"
)

// Config holds the training hyper-parameters and gates.
type Config struct {
	WindowDays      int
	MinSamples      int
	LearningRate    float64
	Epochs          int
	TrainSplit      float64
	DeployThreshold float64
}

// DefaultConfig returns the standard training configuration: a 90-day
// window, at least 100 labeled samples, batch gradient descent at rate 0.01
// for 1000 epochs, an 80/20 chronological split and a 0.85 deployment gate.
func DefaultConfig() Config {
	return Config{
		WindowDays:      90,
		MinSamples:      100,
		LearningRate:    0.01,
		Epochs:          1000,
		TrainSplit:      0.8,
		DeployThreshold: 0.85,
	}
}

// Trainer is the singleton background retraining job.
type Trainer struct {
	history history.TransactionStore
	sink    audit.Sink
	logger  *zap.Logger
	cfg     Config

	// running is the in-process guard flag; it must be released on every
	// exit path, including panics.
	running atomic.Bool

	mu       sync.RWMutex
	state    State
	snapshot *models.ModelSnapshot
	runSeq   int
}

// NewTrainer creates a trainer over the given history store and audit sink.
func NewTrainer(hist history.TransactionStore, sink audit.Sink, cfg Config, logger *zap.Logger) *Trainer {
	return &Trainer{
		history: hist,
		sink:    sink,
		logger:  logger,
		cfg:     cfg,
		state:   StateIdle,
	}
}

// State returns the trainer's current lifecycle state.
func (t *Trainer) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// ModelVersion returns the deployed shadow model's version, or the static
// identifier when no model has been deployed yet.
func (t *Trainer) ModelVersion() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snapshot == nil {
		return "rules-v1"
	}
	return t.snapshot.Version
}

// ModelMetrics returns the last validated metrics. Zero-valued until a
// model has been deployed; a rejected run never overwrites them.
func (t *Trainer) ModelMetrics() models.ValidationMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snapshot == nil {
		return models.ValidationMetrics{}
	}
	return t.snapshot.Metrics
}

// Run executes one training cycle. It is typically invoked by an external
// weekly scheduler. A second call while a run is active returns
// ErrTrainingInProgress.
func (t *Trainer) Run(ctx context.Context) (report *Report, err error) {
	if !t.running.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}
	t.setState(StateTraining)

	defer func() {
		// Guard release has finally semantics: a panicking run must still
		// free the flag and record its failure.
		if r := recover(); r != nil {
			err = fmt.Errorf("training run panicked: %v", r)
		}
		if err != nil && !errors.Is(err, ErrTrainingInProgress) {
			t.logger.Error("training run failed", zap.Error(err))
			metrics.TrainingRuns.WithLabelValues(ResultFailed).Inc()
			t.auditRun(ctx, ResultFailed, map[string]interface{}{"error": err.Error()})
		}
		t.setState(StateIdle)
		t.running.Store(false)
	}()

	return t.run(ctx)
}

func (t *Trainer) run(ctx context.Context) (*Report, error) {
	since := time.Now().AddDate(0, 0, -t.cfg.WindowDays)
	txs, err := t.history.TerminalSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load training window: %w", err)
	}

	samples := buildSamples(txs)
	if len(samples) < t.cfg.MinSamples {
		// Not an error: thin data is a normal early exit.
		t.logger.Info("skipping training run, insufficient labeled samples",
			zap.Int("samples", len(samples)), zap.Int("required", t.cfg.MinSamples))
		metrics.TrainingRuns.WithLabelValues(ResultSkipped).Inc()
		return &Report{Result: ResultSkipped, SampleCount: len(samples)}, nil
	}

	trainCount := int(float64(len(samples)) * t.cfg.TrainSplit)
	standardize(samples, trainCount)
	train, holdout := samples[:trainCount], samples[trainCount:]

	x := make([][]float64, len(train))
	y := make([]float64, len(train))
	for i, s := range train {
		x[i] = s.features
		if s.isFraud {
			y[i] = 1
		}
	}

	model := newLogisticModel(featureCount)
	model.fit(x, y, t.cfg.LearningRate, t.cfg.Epochs)

	validated := validate(model, holdout)
	previous := t.ModelMetrics()

	t.mu.Lock()
	t.runSeq++
	version := fmt.Sprintf("logreg-v%d", t.runSeq)
	t.mu.Unlock()

	report := buildReport(version, len(samples), len(holdout), validated, previous, t.cfg.DeployThreshold)

	if report.Result == ResultDeployed {
		snapshot := &models.ModelSnapshot{
			Version:   version,
			Weights:   append([]float64(nil), model.weights...),
			Bias:      model.bias,
			TrainedAt: time.Now(),
			Metrics:   validated,
		}
		t.mu.Lock()
		t.snapshot = snapshot
		t.mu.Unlock()
		t.logger.Info("shadow model deployed",
			zap.String("version", version),
			zap.Float64("precision", validated.Precision),
			zap.Float64("recall", validated.Recall),
			zap.Float64("f1", validated.F1Score))
	} else {
		t.logger.Error("model performance below deployment threshold, keeping previous metrics",
			zap.String("version", version),
			zap.Float64("precision", validated.Precision),
			zap.Float64("recall", validated.Recall),
			zap.Float64("f1", validated.F1Score),
			zap.Float64("threshold", t.cfg.DeployThreshold))
	}

	metrics.TrainingRuns.WithLabelValues(report.Result).Inc()
	t.auditRun(ctx, report.Result, map[string]interface{}{
		"version": version,
		"samples": len(samples),
		"metrics": validated,
	})
	return report, nil
}

func (t *Trainer) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Trainer) auditRun(ctx context.Context, result string, payload map[string]interface{}) {
	entry := &audit.Entry{
		Type:        audit.EntryTrainingRun,
		Description: fmt.Sprintf("model training run %s", result),
		Payload:     audit.MarshalPayload(payload),
	}
	if err := t.sink.Append(ctx, entry); err != nil {
		t.logger.Error("failed to write training audit entry", zap.Error(err))
	}
}

// validate computes the quality metrics of the model on the held-out split.
func validate(model *logisticModel, holdout []sample) models.ValidationMetrics {
	var tp, fp, tn, fn float64
	for _, s := range holdout {
		predicted := model.classify(s.features)
		switch {
		case predicted && s.isFraud:
			tp++
		case predicted && !s.isFraud:
			fp++
		case !predicted && !s.isFraud:
			tn++
		default:
			fn++
		}
	}

	return models.ValidationMetrics{
		Precision:         ratio(tp, tp+fp),
		Recall:            ratio(tp, tp+fn),
		F1Score:           f1(ratio(tp, tp+fp), ratio(tp, tp+fn)),
		FalsePositiveRate: ratio(fp, fp+tn),
		Accuracy:          ratio(tp+tn, tp+tn+fp+fn),
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func f1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
