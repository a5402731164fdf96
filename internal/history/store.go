// Package history provides read access to stored transactions and sessions.
//
// The engine treats this data as eventually consistent; stale reads are
// tolerated by every caller.
package history

import (
	"context"
	"time"

	"github.com/veripay/riskengine/pkg/models"
)

// TransactionStore is the read-only historical transaction collaborator used
// by the analyzers and the model trainer.
type TransactionStore interface {
	// TransactionsByUser returns the user's transactions created at or after
	// since, filtered to the given outcomes. An empty outcome list means all
	// outcomes. Results are ordered oldest first.
	TransactionsByUser(ctx context.Context, userID string, since time.Time, outcomes ...models.PaymentOutcome) ([]models.Transaction, error)

	// CountFailedSince counts the user's failed payments created at or after
	// since.
	CountFailedSince(ctx context.Context, userID string, since time.Time) (int, error)

	// CountCounterpartiesOn counts the distinct counterparties the user
	// transacted with on the calendar day containing day.
	CountCounterpartiesOn(ctx context.Context, userID string, day time.Time) (int, error)

	// CountUsersForDevice counts the distinct users that have transacted with
	// the given device fingerprint.
	CountUsersForDevice(ctx context.Context, fingerprint string) (int, error)

	// TerminalSince returns all transactions with a terminal payment outcome
	// created at or after since, ordered oldest first. Used by the trainer.
	TerminalSince(ctx context.Context, since time.Time) ([]models.Transaction, error)
}

// SessionStore owns session lifecycle reads and the cancellation write used
// by enforcement.
type SessionStore interface {
	// CancelActive cancels all of the user's sessions in a pending or
	// approved state, tagging them with reason. It returns the number of
	// sessions cancelled.
	CancelActive(ctx context.Context, userID, reason string) (int, error)
}

// Store combines both collaborators; the gorm and memory implementations
// satisfy it.
type Store interface {
	TransactionStore
	SessionStore
}
