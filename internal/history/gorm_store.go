package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/veripay/riskengine/pkg/models"
)

// GormStore is the database-backed Store implementation.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore creates a Store backed by the given gorm DB and migrates the
// transaction and session tables.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&models.Transaction{}, &models.Session{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history tables: %w", err)
	}
	return &GormStore{db: db, logger: logger}, nil
}

func (s *GormStore) TransactionsByUser(ctx context.Context, userID string, since time.Time, outcomes ...models.PaymentOutcome) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at ASC")
	if len(outcomes) > 0 {
		q = q.Where("outcome IN ?", outcomes)
	}

	var txs []models.Transaction
	if err := q.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to query user transactions: %w", err)
	}
	return txs, nil
}

func (s *GormStore) CountFailedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND outcome = ? AND created_at >= ?", userID, models.OutcomeFailed, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count failed payments: %w", err)
	}
	return int(count), nil
}

func (s *GormStore) CountCounterpartiesOn(ctx context.Context, userID string, day time.Time) (int, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ? AND counterparty_id <> ''", userID, dayStart, dayEnd).
		Distinct("counterparty_id").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count counterparties: %w", err)
	}
	return int(count), nil
}

func (s *GormStore) CountUsersForDevice(ctx context.Context, fingerprint string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("device_fingerprint = ?", fingerprint).
		Distinct("user_id").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count device users: %w", err)
	}
	return int(count), nil
}

func (s *GormStore) TerminalSince(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND outcome IN ?", since,
			[]models.PaymentOutcome{models.OutcomePaid, models.OutcomeFailed, models.OutcomeBlocked}).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query terminal transactions: %w", err)
	}
	return txs, nil
}

func (s *GormStore) CancelActive(ctx context.Context, userID, reason string) (int, error) {
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND status IN ?", userID,
			[]models.SessionStatus{models.SessionPending, models.SessionApproved}).
		Updates(map[string]interface{}{
			"status":        models.SessionCancelled,
			"cancel_reason": reason,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to cancel sessions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
