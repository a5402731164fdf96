package riskengine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/blocklist"
	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/internal/profile"
	"github.com/veripay/riskengine/pkg/models"
)

func paidTx(userID string, amount float64, created time.Time) models.Transaction {
	return models.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    decimal.NewFromFloat(amount),
		Outcome:   models.OutcomePaid,
		CreatedAt: created,
	}
}

func seedHistory(txs ...models.Transaction) *history.MemoryStore {
	store := history.NewMemoryStore()
	for _, tx := range txs {
		store.AddTransaction(tx)
	}
	return store
}

func TestAmountAnalyzerNewUserDefault(t *testing.T) {
	store := seedHistory()
	profiles := profile.NewStore(store, zap.NewNop())
	analyzer := NewAmountAnalyzer(profiles)

	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID: "nobody",
		Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, float64(newUserAmountScore), fs.Score)
}

func TestAmountAnalyzerLargeDeviation(t *testing.T) {
	now := time.Now()
	var txs []models.Transaction
	for i := 0; i < 6; i++ {
		txs = append(txs, paidTx("u1", 2500, now.Add(-time.Duration(i+1)*time.Hour)))
	}
	profiles := profile.NewStore(seedHistory(txs...), zap.NewNop())
	analyzer := NewAmountAnalyzer(profiles)

	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID: "u1",
		Amount: decimal.NewFromInt(50000),
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fs.Score, 70.0,
		"amount 20x the historical average must score at least 70")
	assert.NotEmpty(t, fs.Reasons)
}

func TestAmountAnalyzerTypicalAmount(t *testing.T) {
	now := time.Now()
	amounts := []float64{2000, 2200, 2500, 2700, 3000, 2400}
	var txs []models.Transaction
	for i, a := range amounts {
		txs = append(txs, paidTx("u1", a, now.Add(-time.Duration(i+1)*time.Hour)))
	}
	profiles := profile.NewStore(seedHistory(txs...), zap.NewNop())
	analyzer := NewAmountAnalyzer(profiles)

	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID: "u1",
		Amount: decimal.NewFromInt(2500),
	})
	require.NoError(t, err)
	assert.Less(t, fs.Score, 30.0)
}

func TestTimeAnalyzer(t *testing.T) {
	analyzer := NewTimeAnalyzer()
	cases := []struct {
		hour int
		want float64
	}{
		{3, 60},
		{0, 60},
		{23, 60},
		{4, 60},
		{5, 30},
		{6, 30},
		{12, 10},
		{22, 10},
	}
	for _, tc := range cases {
		ts := time.Date(2025, 6, 1, tc.hour, 0, 0, 0, time.Local)
		fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{Timestamp: ts})
		require.NoError(t, err)
		assert.Equal(t, tc.want, fs.Score, "hour %d", tc.hour)
	}
}

func TestFrequencyAnalyzerFailedPayments(t *testing.T) {
	now := time.Now()
	store := history.NewMemoryStore()
	for i := 0; i < 3; i++ {
		store.AddTransaction(models.Transaction{
			ID:        uuid.New(),
			UserID:    "u1",
			Amount:    decimal.NewFromInt(100),
			Outcome:   models.OutcomeFailed,
			CreatedAt: now.Add(-time.Duration(i+1) * time.Minute),
		})
	}
	analyzer := NewFrequencyAnalyzer(store)

	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID:    "u1",
		Timestamp: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 90.0, fs.Score, "3 failures inside 10 minutes must score 90")
}

func TestFrequencyAnalyzerCounterpartyFloor(t *testing.T) {
	now := time.Now()
	store := history.NewMemoryStore()
	for _, cp := range []string{"a", "b", "c", "d"} {
		store.AddTransaction(models.Transaction{
			ID:             uuid.New(),
			UserID:         "u1",
			CounterpartyID: cp,
			Amount:         decimal.NewFromInt(100),
			Outcome:        models.OutcomePaid,
			CreatedAt:      now.Add(-time.Hour),
		})
	}
	analyzer := NewFrequencyAnalyzer(store)

	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID:    "u1",
		Timestamp: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, fs.Score, "more than 3 same-day counterparties floors the score at 50")
}

func TestDeviceAnalyzer(t *testing.T) {
	now := time.Now()
	tx := paidTx("u1", 100, now.Add(-time.Hour))
	tx.DeviceFingerprint = "dev-1"
	store := seedHistory(tx)
	profiles := profile.NewStore(store, zap.NewNop())
	analyzer := NewDeviceAnalyzer(profiles, store)

	// Missing fingerprint.
	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 40.0, fs.Score)

	// Unknown device for the user.
	fs, err = analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID: "u1", DeviceFingerprint: "dev-other",
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, fs.Score)

	// Known device, single user.
	fs, err = analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID: "u1", DeviceFingerprint: "dev-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 8.0, fs.Score)
}

func TestDeviceAnalyzerSharedDevice(t *testing.T) {
	now := time.Now()
	store := history.NewMemoryStore()
	// Seven distinct users share the same fingerprint; u1 knows the device.
	for i, user := range []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"} {
		tx := paidTx(user, 100, now.Add(-time.Duration(i+1)*time.Hour))
		tx.DeviceFingerprint = "farm-device"
		store.AddTransaction(tx)
	}
	profiles := profile.NewStore(store, zap.NewNop())
	analyzer := NewDeviceAnalyzer(profiles, store)

	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID: "u1", DeviceFingerprint: "farm-device",
	})
	require.NoError(t, err)
	assert.Equal(t, 70.0, fs.Score)
}

func TestBehaviorAnalyzer(t *testing.T) {
	now := time.Now()
	tx := paidTx("u1", 100, now.Add(-time.Hour))
	tx.SessionType = "standard"
	tx.IPAddress = "10.0.0.1"
	profiles := profile.NewStore(seedHistory(tx), zap.NewNop())
	analyzer := NewBehaviorAnalyzer(profiles)

	// Unknown user.
	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{UserID: "stranger"})
	require.NoError(t, err)
	assert.Equal(t, float64(newUserBehaviorScore), fs.Score)

	// Consistent behavior.
	fs, err = analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID: "u1", SessionType: "standard", IPAddress: "10.0.0.2",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, fs.Score)

	// New session type and new location.
	fs, err = analyzer.Analyze(context.Background(), models.TransactionContext{
		UserID: "u1", SessionType: "premium", IPAddress: "203.0.113.9",
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, fs.Score)
}

func TestExternalAnalyzer(t *testing.T) {
	bl := blocklist.NewMemory()
	require.NoError(t, bl.Add(context.Background(), "254711222333"))
	analyzer := NewExternalAnalyzer(bl, zap.NewNop())

	fs, err := analyzer.Analyze(context.Background(), models.TransactionContext{
		PhoneNumber: "254711222333",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, fs.Score)

	// Fraud pattern: one digit repeated.
	fs, err = analyzer.Analyze(context.Background(), models.TransactionContext{
		PhoneNumber: "7777777777",
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, fs.Score)

	// Clean phone.
	fs, err = analyzer.Analyze(context.Background(), models.TransactionContext{
		PhoneNumber: "254700000001",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, fs.Score)
}
