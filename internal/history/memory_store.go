package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/veripay/riskengine/pkg/models"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	txs      []models.Transaction
	sessions map[string]*models.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.Session)}
}

// AddTransaction appends a transaction to the store.
func (s *MemoryStore) AddTransaction(tx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
}

// AddSession inserts or replaces a session.
func (s *MemoryStore) AddSession(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := sess
	s.sessions[sess.ID.String()] = &copied
}

// Session returns a copy of the stored session, if present.
func (s *MemoryStore) Session(id string) (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return *sess, true
}

func (s *MemoryStore) TransactionsByUser(_ context.Context, userID string, since time.Time, outcomes ...models.PaymentOutcome) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	for _, tx := range s.txs {
		if tx.UserID != userID || tx.CreatedAt.Before(since) {
			continue
		}
		if len(outcomes) > 0 && !outcomeIn(tx.Outcome, outcomes) {
			continue
		}
		out = append(out, tx)
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) CountFailedSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, tx := range s.txs {
		if tx.UserID == userID && tx.Outcome == models.OutcomeFailed && !tx.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) CountCounterpartiesOn(_ context.Context, userID string, day time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	seen := make(map[string]struct{})
	for _, tx := range s.txs {
		if tx.UserID != userID || tx.CounterpartyID == "" {
			continue
		}
		if tx.CreatedAt.Before(dayStart) || !tx.CreatedAt.Before(dayEnd) {
			continue
		}
		seen[tx.CounterpartyID] = struct{}{}
	}
	return len(seen), nil
}

func (s *MemoryStore) CountUsersForDevice(_ context.Context, fingerprint string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, tx := range s.txs {
		if tx.DeviceFingerprint == fingerprint {
			seen[tx.UserID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (s *MemoryStore) TerminalSince(_ context.Context, since time.Time) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	for _, tx := range s.txs {
		if tx.Outcome.Terminal() && !tx.CreatedAt.Before(since) {
			out = append(out, tx)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) CancelActive(_ context.Context, userID, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := 0
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		if sess.Status == models.SessionPending || sess.Status == models.SessionApproved {
			sess.Status = models.SessionCancelled
			sess.CancelReason = reason
			sess.UpdatedAt = time.Now()
			cancelled++
		}
	}
	return cancelled, nil
}

func outcomeIn(o models.PaymentOutcome, list []models.PaymentOutcome) bool {
	for _, candidate := range list {
		if o == candidate {
			return true
		}
	}
	return false
}

func sortByCreated(txs []models.Transaction) {
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
}
