package riskengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/audit"
	"github.com/veripay/riskengine/internal/blocklist"
	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/internal/profile"
	"github.com/veripay/riskengine/pkg/models"
)

type engineFixture struct {
	engine    *Engine
	history   *history.MemoryStore
	blocklist *blocklist.Memory
	sink      *audit.MemorySink
	profiles  *profile.Store
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	store := history.NewMemoryStore()
	bl := blocklist.NewMemory()
	sink := audit.NewMemorySink()
	profiles := profile.NewStore(store, zap.NewNop())
	return &engineFixture{
		engine:    New(profiles, bl, store, sink, zap.NewNop()),
		history:   store,
		blocklist: bl,
		sink:      sink,
		profiles:  profiles,
	}
}

func baseTx() models.TransactionContext {
	return models.TransactionContext{
		UserID:            "user-1",
		SessionID:         "sess-1",
		Amount:            decimal.NewFromInt(1500),
		PhoneNumber:       "254722000111",
		DeviceFingerprint: "dev-1",
		IPAddress:         "10.1.2.3",
		SessionType:       "standard",
		Timestamp:         time.Date(2025, 6, 1, 14, 0, 0, 0, time.Local),
	}
}

func TestAnalyzeScoreAlwaysInRange(t *testing.T) {
	f := newEngineFixture(t)
	analysis := f.engine.Analyze(context.Background(), baseTx())

	require.NotNil(t, analysis)
	assert.GreaterOrEqual(t, analysis.Score, 0)
	assert.LessOrEqual(t, analysis.Score, 100)
	assert.Equal(t, Decide(analysis.Score), analysis.Decision)
}

func TestBlocklistShortCircuit(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.blocklist.Add(ctx, "254700000001"))

	tx := baseTx()
	tx.PhoneNumber = "254700000001"
	analysis := f.engine.Analyze(ctx, tx)

	assert.Equal(t, 100, analysis.Score)
	assert.Equal(t, models.DecisionBlock, analysis.Decision)
	assert.Equal(t, []string{"blocked"}, analysis.Reasons)
}

func TestBlocklistShortCircuitByUserID(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.blocklist.Add(ctx, "user-1"))

	analysis := f.engine.Analyze(ctx, baseTx())
	assert.Equal(t, 100, analysis.Score)
	assert.Equal(t, models.DecisionBlock, analysis.Decision)
}

func TestBlocklistRemoveRestoresScoring(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	tx := baseTx()
	before := f.engine.Analyze(ctx, tx)
	require.NotEqual(t, models.DecisionBlock, before.Decision)

	require.NoError(t, f.blocklist.Add(ctx, tx.PhoneNumber))
	blocked := f.engine.Analyze(ctx, tx)
	assert.Equal(t, 100, blocked.Score)
	assert.Equal(t, models.DecisionBlock, blocked.Decision)

	// Enforcement blocklisted the user as well; clear both entries.
	require.NoError(t, f.blocklist.Remove(ctx, tx.PhoneNumber))
	require.NoError(t, f.blocklist.Remove(ctx, tx.UserID))

	after := f.engine.Analyze(ctx, tx)
	assert.NotEqual(t, models.DecisionBlock, after.Decision,
		"removal from the blocklist must restore normal scoring")
	assert.Less(t, after.Score, 100)
}

func TestBlockTriggersEnforcement(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	sessID := uuid.New()
	f.history.AddSession(models.Session{
		ID:     sessID,
		UserID: "user-1",
		Status: models.SessionApproved,
	})

	require.NoError(t, f.blocklist.Add(ctx, "254700000001"))
	tx := baseTx()
	tx.PhoneNumber = "254700000001"
	f.engine.Analyze(ctx, tx)

	// Both identifiers blocklisted.
	hit, err := f.blocklist.Contains(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, hit)

	// Active session cancelled with the fraud reason.
	sess, ok := f.history.Session(sessID.String())
	require.True(t, ok)
	assert.Equal(t, models.SessionCancelled, sess.Status)
	assert.Equal(t, fraudCancelReason, sess.CancelReason)

	// Audit chain contains an enforcement entry and stays intact.
	var sawEnforcement bool
	for _, e := range f.sink.Entries() {
		if e.Type == audit.EntryEnforcement {
			sawEnforcement = true
		}
	}
	assert.True(t, sawEnforcement)
	_, err = f.sink.VerifyChain(ctx)
	assert.NoError(t, err)
}

func TestEveryAnalysisIsAudited(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.engine.Analyze(ctx, baseTx())
	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.EntryRiskAnalysis, entries[0].Type)
	assert.Equal(t, "user-1", entries[0].UserID)
}

func TestProfileUpdatedAfterScoring(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	assert.Equal(t, 0, f.profiles.Size())
	f.engine.Analyze(ctx, baseTx())
	assert.Equal(t, 1, f.profiles.Size())

	prof, ok := f.profiles.Lookup(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, 1, prof.TransactionCount)
	assert.Contains(t, prof.KnownDevices, "dev-1")
}

type panicAnalyzer struct{}

func (panicAnalyzer) Name() string { return "panic" }
func (panicAnalyzer) Analyze(context.Context, models.TransactionContext) (models.FactorScore, error) {
	panic("analyzer exploded")
}

type errorAnalyzer struct{}

func (errorAnalyzer) Name() string { return "error" }
func (errorAnalyzer) Analyze(context.Context, models.TransactionContext) (models.FactorScore, error) {
	return models.FactorScore{}, errors.New("backend unavailable")
}

func TestSingleAnalyzerFailureDoesNotBlock(t *testing.T) {
	f := newEngineFixture(t)
	// Replace the amount analyzer with faulty ones; the pipeline must keep
	// producing decisions with the default sub-score substituted.
	f.engine.analyzers[0] = panicAnalyzer{}
	analysis := f.engine.Analyze(context.Background(), baseTx())
	require.NotNil(t, analysis)
	assert.Equal(t, float64(defaultFactorScore), analysis.Factors.AmountDeviation)
	assert.NotEqual(t, models.DecisionBlock, analysis.Decision)

	f.engine.analyzers[0] = errorAnalyzer{}
	analysis = f.engine.Analyze(context.Background(), baseTx())
	require.NotNil(t, analysis)
	assert.Equal(t, float64(defaultFactorScore), analysis.Factors.AmountDeviation)
}

type panicSink struct{}

func (panicSink) Append(context.Context, *audit.Entry) error { panic("sink down") }

func TestPipelineFaultFailsOpen(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.sink = panicSink{}

	analysis := f.engine.Analyze(context.Background(), baseTx())
	require.NotNil(t, analysis)
	assert.Equal(t, 0, analysis.Score)
	assert.Equal(t, models.DecisionAllow, analysis.Decision)
	assert.Equal(t, []string{"analysis failed, defaulting to allow"}, analysis.Reasons)
}

func TestUnusualHoursRaiseScore(t *testing.T) {
	f := newEngineFixture(t)
	tx := baseTx()
	tx.Timestamp = time.Date(2025, 6, 1, 3, 0, 0, 0, time.Local)

	analysis := f.engine.Analyze(context.Background(), tx)
	assert.Equal(t, 60.0, analysis.Factors.TimePattern)
}

func TestConcurrentAnalyzeSameUser(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	const workers = 16
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			analysis := f.engine.Analyze(ctx, baseTx())
			if analysis.Score < 0 || analysis.Score > 100 {
				t.Errorf("score out of range: %d", analysis.Score)
			}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}

	prof, ok := f.profiles.Lookup(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, workers, prof.TransactionCount,
		"per-key serialization must not lose profile updates")
}
