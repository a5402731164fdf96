// Package audit implements the tamper-evident audit log the engine appends
// decisions, enforcement actions and training runs to.
//
// Each entry's integrity hash is a SHA-256 digest over the entry's canonical
// JSON content concatenated with the previous entry's hash, so retroactive
// edits break the chain. The engine only appends; it never reads back or
// mutates existing entries.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryType classifies audit entries.
type EntryType string

const (
	EntryRiskAnalysis EntryType = "risk.analysis"
	EntryEnforcement  EntryType = "risk.enforcement"
	EntryTrainingRun  EntryType = "model.training_run"
)

// Entry is one record in the hash-chained audit log.
type Entry struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Sequence     int64     `json:"sequence" gorm:"autoIncrement;uniqueIndex"`
	Type         EntryType `json:"type" gorm:"index;not null"`
	UserID       string    `json:"user_id" gorm:"index"`
	Description  string    `json:"description"`
	Payload      string    `json:"payload" gorm:"type:text"`
	Hash         string    `json:"hash" gorm:"not null;index"`
	PreviousHash string    `json:"previous_hash"`
	CreatedAt    time.Time `json:"created_at" gorm:"index;not null"`
}

// Sink is the append-only audit collaborator.
type Sink interface {
	// Append writes one entry. The sink assigns ID, timestamp, previous hash
	// and hash; callers fill Type, UserID, Description and Payload.
	Append(ctx context.Context, entry *Entry) error
}

// Verifier is implemented by sinks that can re-verify their chain.
type Verifier interface {
	// VerifyChain recomputes every entry's hash and the previous-hash links.
	// It returns the number of verified entries and the first inconsistency
	// found, if any.
	VerifyChain(ctx context.Context) (int, error)
}

// chainContent is the canonical content covered by an entry's hash. The hash
// field itself is excluded; the previous hash is included to form the chain.
type chainContent struct {
	ID           uuid.UUID `json:"id"`
	Type         EntryType `json:"type"`
	UserID       string    `json:"user_id"`
	Description  string    `json:"description"`
	Payload      string    `json:"payload"`
	CreatedAt    time.Time `json:"created_at"`
	PreviousHash string    `json:"previous_hash"`
}

// computeHash returns the hex SHA-256 digest of the entry's canonical
// content concatenated with the previous entry's hash.
func computeHash(e *Entry) (string, error) {
	data, err := json.Marshal(chainContent{
		ID:           e.ID,
		Type:         e.Type,
		UserID:       e.UserID,
		Description:  e.Description,
		Payload:      e.Payload,
		CreatedAt:    e.CreatedAt,
		PreviousHash: e.PreviousHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// finalize stamps identity and hash fields on a new entry given the previous
// entry's hash.
func finalize(e *Entry, prevHash string) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.PreviousHash = prevHash
	hash, err := computeHash(e)
	if err != nil {
		return err
	}
	e.Hash = hash
	return nil
}

// MarshalPayload renders v as the entry payload string.
func MarshalPayload(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
