package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormSink persists the audit chain in a database table.
type GormSink struct {
	db     *gorm.DB
	logger *zap.Logger

	// mu serializes appends so the previous-hash link is never computed
	// against a stale tail.
	mu       sync.Mutex
	lastHash string
	loaded   bool
}

// NewGormSink creates a database-backed sink and migrates the entries table.
func NewGormSink(db *gorm.DB, logger *zap.Logger) (*GormSink, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit table: %w", err)
	}
	return &GormSink{db: db, logger: logger}, nil
}

func (s *GormSink) Append(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		prev, err := s.tailHash(ctx)
		if err != nil {
			return err
		}
		s.lastHash = prev
		s.loaded = true
	}

	if err := finalize(entry, s.lastHash); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	s.lastHash = entry.Hash
	return nil
}

func (s *GormSink) VerifyChain(ctx context.Context) (int, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Order("sequence ASC").Find(&entries).Error; err != nil {
		return 0, fmt.Errorf("failed to load audit chain: %w", err)
	}
	return verifyEntries(entries)
}

func (s *GormSink) tailHash(ctx context.Context) (string, error) {
	var last Entry
	err := s.db.WithContext(ctx).Order("sequence DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read audit tail: %w", err)
	}
	return last.Hash, nil
}

// verifyEntries recomputes hashes and previous-hash links over an ordered
// chain. Shared by both sinks.
func verifyEntries(entries []Entry) (int, error) {
	prevHash := ""
	for i := range entries {
		e := entries[i]
		if e.PreviousHash != prevHash {
			return i, fmt.Errorf("audit chain broken at entry %d (%s): previous hash mismatch", i, e.ID)
		}
		expected, err := computeHash(&e)
		if err != nil {
			return i, err
		}
		if e.Hash != expected {
			return i, fmt.Errorf("audit chain broken at entry %d (%s): content hash mismatch", i, e.ID)
		}
		prevHash = e.Hash
	}
	return len(entries), nil
}
