package audit

import (
	"context"
	"sync"
)

// MemorySink keeps the chain in memory, for tests and local development.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevHash := ""
	if n := len(s.entries); n > 0 {
		prevHash = s.entries[n-1].Hash
	}
	if err := finalize(entry, prevHash); err != nil {
		return err
	}
	entry.Sequence = int64(len(s.entries) + 1)
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *MemorySink) VerifyChain(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return verifyEntries(s.entries)
}

// Entries returns a copy of all appended entries, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Tamper overwrites the description of the entry at index i, breaking the
// chain. Test helper.
func (s *MemorySink) Tamper(i int, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= 0 && i < len(s.entries) {
		s.entries[i].Description = description
	}
}
