// Package models contains the core domain types shared across the risk engine.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision is the outcome of one risk evaluation.
type Decision string

const (
	DecisionAllow  Decision = "ALLOW"
	DecisionReview Decision = "REVIEW"
	DecisionBlock  Decision = "BLOCK"
)

// PaymentOutcome represents the terminal state of a transaction's payment.
type PaymentOutcome string

const (
	OutcomePending PaymentOutcome = "pending"
	OutcomePaid    PaymentOutcome = "paid"
	OutcomeFailed  PaymentOutcome = "failed"
	OutcomeBlocked PaymentOutcome = "blocked"
)

// Terminal reports whether the outcome can no longer change.
func (o PaymentOutcome) Terminal() bool {
	return o == OutcomePaid || o == OutcomeFailed || o == OutcomeBlocked
}

// SessionStatus represents the lifecycle state of a booked session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionApproved  SessionStatus = "approved"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// TransactionContext is the immutable input to one scoring pass.
type TransactionContext struct {
	UserID            string          `json:"user_id" validate:"required"`
	SessionID         string          `json:"session_id"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	PhoneNumber       string          `json:"phone_number"`
	DeviceFingerprint string          `json:"device_fingerprint,omitempty"`
	IPAddress         string          `json:"ip_address"`
	SessionType       string          `json:"session_type"`
	Timestamp         time.Time       `json:"timestamp"`
}

// Transaction is a stored payment attempt with its outcome, queried
// read-only by the analyzers and the trainer.
type Transaction struct {
	ID                uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	UserID            string          `json:"user_id" gorm:"index;not null"`
	SessionID         string          `json:"session_id" gorm:"index"`
	CounterpartyID    string          `json:"counterparty_id" gorm:"index"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(20,4)"`
	PhoneNumber       string          `json:"phone_number" gorm:"index"`
	DeviceFingerprint string          `json:"device_fingerprint" gorm:"index"`
	IPAddress         string          `json:"ip_address"`
	SessionType       string          `json:"session_type"`
	Outcome           PaymentOutcome  `json:"outcome" gorm:"index;not null"`
	ReviewRequired    bool            `json:"review_required"`
	AccountCreatedAt  time.Time       `json:"account_created_at"`
	CreatedAt         time.Time       `json:"created_at" gorm:"index;not null"`
}

// Session is a booking whose lifecycle Enforcement may cancel on BLOCK.
type Session struct {
	ID           uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	UserID       string        `json:"user_id" gorm:"index;not null"`
	Status       SessionStatus `json:"status" gorm:"index;not null"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// FactorScore is one analyzer's contribution: a 0-100 sub-score plus
// human-readable reasons.
type FactorScore struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// FactorScores holds the six per-factor sub-scores.
type FactorScores struct {
	AmountDeviation   float64 `json:"amount_deviation"`
	TimePattern       float64 `json:"time_pattern"`
	Frequency         float64 `json:"frequency"`
	DeviceFingerprint float64 `json:"device_fingerprint"`
	BehaviorHistory   float64 `json:"behavior_history"`
	ExternalDatabase  float64 `json:"external_database"`
}

// RiskAnalysis is the immutable result of one scoring pass. It is produced
// once per transaction and appended to the audit sink immediately.
type RiskAnalysis struct {
	ID             uuid.UUID    `json:"id"`
	UserID         string       `json:"user_id"`
	SessionID      string       `json:"session_id"`
	Factors        FactorScores `json:"factors"`
	Score          int          `json:"score"`
	Decision       Decision     `json:"decision"`
	Reasons        []string     `json:"reasons"`
	ProcessingTime int64        `json:"processing_time_ms"`
	ModelVersion   string       `json:"model_version"`
	Timestamp      time.Time    `json:"timestamp"`
}

// UserRiskProfile is the rolling statistical summary of one user's history.
// Created on the user's first paid transaction; it only ever grows.
type UserRiskProfile struct {
	UserID                string              `json:"user_id"`
	TransactionCount      int                 `json:"transaction_count"`
	AverageAmount         float64             `json:"average_amount"`
	StandardDeviation     float64             `json:"standard_deviation"`
	KnownDevices          map[string]struct{} `json:"-"`
	PreferredSessionTypes map[string]struct{} `json:"-"`
	KnownLocations        map[string]struct{} `json:"-"`
	LastUpdated           time.Time           `json:"last_updated"`
}

// ValidationMetrics are the quality numbers of one trained model evaluated
// on the held-out split.
type ValidationMetrics struct {
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1Score           float64 `json:"f1_score"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	Accuracy          float64 `json:"accuracy"`
}

// ModelSnapshot is a trained model version with its validation metrics.
// A snapshot is only retained when precision, recall and F1 all clear the
// deployment threshold.
type ModelSnapshot struct {
	Version   string            `json:"version"`
	Weights   []float64         `json:"weights"`
	Bias      float64           `json:"bias"`
	TrainedAt time.Time         `json:"trained_at"`
	Metrics   ValidationMetrics `json:"metrics"`
}

// EngineMetrics is the dashboard surface returned by the engine's
// GetMetrics operation.
type EngineMetrics struct {
	ModelVersion     string            `json:"model_version"`
	ModelMetrics     ValidationMetrics `json:"model_metrics"`
	BlockThreshold   int               `json:"block_threshold"`
	ReviewThreshold  int               `json:"review_threshold"`
	BlocklistSize    int               `json:"blocklist_size"`
	ProfileCacheSize int               `json:"profile_cache_size"`
}
