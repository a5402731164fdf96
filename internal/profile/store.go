// Package profile maintains per-user rolling behavioral statistics.
//
// Profiles are built lazily from historical paid transactions, cached in
// memory, and updated strictly after a transaction has been scored so a
// transaction never inflates its own risk. Updates for the same user are
// serialized through a per-key lock; profiles are never deleted.
package profile

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/pkg/models"
)

// profileState is the mutable cached form of a profile. mean and m2 follow
// Welford's online algorithm so the stddev stays numerically stable as the
// profile grows.
type profileState struct {
	userID       string
	count        int
	mean         float64
	m2           float64
	devices      map[string]struct{}
	sessionTypes map[string]struct{}
	locations    map[string]struct{}
	lastUpdated  time.Time
}

// Store is the shared in-memory profile cache keyed by userID.
type Store struct {
	history history.TransactionStore
	logger  *zap.Logger

	mu       sync.RWMutex
	profiles map[string]*profileState
	locks    keyLock
}

// NewStore creates a profile store reading history from the given
// transaction store.
func NewStore(hist history.TransactionStore, logger *zap.Logger) *Store {
	return &Store{
		history:  hist,
		logger:   logger,
		profiles: make(map[string]*profileState),
	}
}

// Lookup returns a snapshot of the user's profile. For users not yet cached
// it attempts to build one from historical paid transactions; users with no
// paid history get no profile and ok is false.
func (s *Store) Lookup(ctx context.Context, userID string) (models.UserRiskProfile, bool) {
	unlock := s.locks.lock(userID)
	defer unlock()

	s.mu.RLock()
	state, ok := s.profiles[userID]
	s.mu.RUnlock()
	if ok {
		return snapshot(state), true
	}

	state, err := s.build(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to build profile from history",
			zap.String("user_id", userID), zap.Error(err))
		return models.UserRiskProfile{}, false
	}
	if state == nil {
		return models.UserRiskProfile{}, false
	}

	s.mu.Lock()
	s.profiles[userID] = state
	s.mu.Unlock()
	return snapshot(state), true
}

// Record upserts the user's profile with one analyzed transaction. It must
// only be called after scoring has completed.
func (s *Store) Record(tx models.TransactionContext) {
	unlock := s.locks.lock(tx.UserID)
	defer unlock()

	s.mu.RLock()
	state, ok := s.profiles[tx.UserID]
	s.mu.RUnlock()
	if !ok {
		state = newState(tx.UserID)
		s.mu.Lock()
		s.profiles[tx.UserID] = state
		s.mu.Unlock()
	}

	amount, _ := tx.Amount.Float64()
	state.count++
	delta := amount - state.mean
	state.mean += delta / float64(state.count)
	state.m2 += delta * (amount - state.mean)

	if tx.DeviceFingerprint != "" {
		state.devices[tx.DeviceFingerprint] = struct{}{}
	}
	if tx.SessionType != "" {
		state.sessionTypes[tx.SessionType] = struct{}{}
	}
	if loc := LocationFromIP(tx.IPAddress); loc != "" {
		state.locations[loc] = struct{}{}
	}
	state.lastUpdated = time.Now()
}

// Size returns the number of cached profiles.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// build constructs a profile from the user's historical paid transactions.
// Returns nil when the user has no paid history.
func (s *Store) build(ctx context.Context, userID string) (*profileState, error) {
	txs, err := s.history.TransactionsByUser(ctx, userID, time.Time{}, models.OutcomePaid)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}

	state := newState(userID)
	for _, tx := range txs {
		amount, _ := tx.Amount.Float64()
		state.count++
		delta := amount - state.mean
		state.mean += delta / float64(state.count)
		state.m2 += delta * (amount - state.mean)

		if tx.DeviceFingerprint != "" {
			state.devices[tx.DeviceFingerprint] = struct{}{}
		}
		if tx.SessionType != "" {
			state.sessionTypes[tx.SessionType] = struct{}{}
		}
		if loc := LocationFromIP(tx.IPAddress); loc != "" {
			state.locations[loc] = struct{}{}
		}
	}
	state.lastUpdated = time.Now()
	return state, nil
}

// snapshot copies state into the exported profile shape. Callers must hold
// the per-key lock for state.userID.
func snapshot(state *profileState) models.UserRiskProfile {
	stddev := 0.0
	if state.count > 1 {
		stddev = math.Sqrt(state.m2 / float64(state.count-1))
	}
	return models.UserRiskProfile{
		UserID:                state.userID,
		TransactionCount:      state.count,
		AverageAmount:         state.mean,
		StandardDeviation:     stddev,
		KnownDevices:          cloneSet(state.devices),
		PreferredSessionTypes: cloneSet(state.sessionTypes),
		KnownLocations:        cloneSet(state.locations),
		LastUpdated:           state.lastUpdated,
	}
}

func newState(userID string) *profileState {
	return &profileState{
		userID:       userID,
		devices:      make(map[string]struct{}),
		sessionTypes: make(map[string]struct{}),
		locations:    make(map[string]struct{}),
	}
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// LocationFromIP derives a coarse location key from an IP address: the first
// two octets for IPv4, the first two groups for IPv6. Empty for blank input.
func LocationFromIP(ip string) string {
	if ip == "" {
		return ""
	}
	if parts := strings.Split(ip, "."); len(parts) == 4 {
		return parts[0] + "." + parts[1]
	}
	if parts := strings.Split(ip, ":"); len(parts) > 2 {
		return parts[0] + ":" + parts[1]
	}
	return ip
}
