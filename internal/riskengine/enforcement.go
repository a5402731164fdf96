package riskengine

import (
	"context"

	"go.uber.org/zap"

	"github.com/veripay/riskengine/internal/audit"
	"github.com/veripay/riskengine/internal/blocklist"
	"github.com/veripay/riskengine/internal/history"
	"github.com/veripay/riskengine/pkg/metrics"
	"github.com/veripay/riskengine/pkg/models"
)

// fraudCancelReason tags sessions cancelled by enforcement so the session
// reconciliation job can tell them apart from user cancellations.
const fraudCancelReason = "cancelled: fraud risk block"

// Enforcer applies the consequences of a BLOCK decision: blocklisting the
// actor, cancelling their active sessions and recording an audit entry.
// Every step is fire-and-log; enforcement failures never reach the caller
// of the scoring pipeline. A failed cancellation is retried by the session
// lifecycle reconciliation job, not here.
type Enforcer struct {
	blocklist blocklist.Blocklist
	sessions  history.SessionStore
	sink      audit.Sink
	logger    *zap.Logger
}

// NewEnforcer creates an enforcer over the given collaborators.
func NewEnforcer(bl blocklist.Blocklist, sessions history.SessionStore, sink audit.Sink, logger *zap.Logger) *Enforcer {
	return &Enforcer{blocklist: bl, sessions: sessions, sink: sink, logger: logger}
}

// Enforce blocklists the user and phone, cancels pending/approved sessions
// and writes an enforcement audit entry. Idempotent: repeated calls for the
// same actor are harmless.
func (e *Enforcer) Enforce(ctx context.Context, tx models.TransactionContext, analysis *models.RiskAnalysis) {
	if err := e.blocklist.Add(ctx, tx.UserID); err != nil {
		e.logger.Error("failed to blocklist user",
			zap.String("user_id", tx.UserID), zap.Error(err))
	} else {
		metrics.EnforcementActions.WithLabelValues("blocklist_user").Inc()
	}
	if err := e.blocklist.Add(ctx, tx.PhoneNumber); err != nil {
		e.logger.Error("failed to blocklist phone",
			zap.String("user_id", tx.UserID), zap.Error(err))
	} else if tx.PhoneNumber != "" {
		metrics.EnforcementActions.WithLabelValues("blocklist_phone").Inc()
	}

	cancelled, err := e.sessions.CancelActive(ctx, tx.UserID, fraudCancelReason)
	if err != nil {
		e.logger.Error("failed to cancel user sessions",
			zap.String("user_id", tx.UserID), zap.Error(err))
	} else if cancelled > 0 {
		metrics.EnforcementActions.WithLabelValues("cancel_session").Add(float64(cancelled))
		e.logger.Info("cancelled active sessions for blocked user",
			zap.String("user_id", tx.UserID), zap.Int("count", cancelled))
	}

	entry := &audit.Entry{
		Type:        audit.EntryEnforcement,
		UserID:      tx.UserID,
		Description: "user blocked and active sessions cancelled",
		Payload: audit.MarshalPayload(map[string]interface{}{
			"phone_number":       tx.PhoneNumber,
			"score":              analysis.Score,
			"sessions_cancelled": cancelled,
		}),
	}
	if err := e.sink.Append(ctx, entry); err != nil {
		e.logger.Error("failed to write enforcement audit entry",
			zap.String("user_id", tx.UserID), zap.Error(err))
	}
}
