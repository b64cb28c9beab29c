// audit/store.go
package audit

import (
	"context"
	"sync"

	cit_errors "github.com/ameet-kotian/citadel/errors"
)

// Store persists chain records. Implementations must make Append durable
// before returning; ordering is the chain's responsibility, not the store's.
type Store interface {
	// Append persists a fully formed record.
	Append(ctx context.Context, record *Record) error
	// Last returns the highest-sequence record, or nil when the store is empty.
	Last(ctx context.Context) (*Record, error)
	// Range returns records with from <= sequence <= to in ascending sequence
	// order. to == 0 means open-ended.
	Range(ctx context.Context, from, to uint64) ([]*Record, error)
	// Query returns records matching the filter in ascending sequence order.
	Query(ctx context.Context, filter QueryFilter) ([]*Record, error)
}

// MemoryStore keeps records in process memory. Used in tests and embedded
// setups where durability is delegated elsewhere.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records = append(s.records, &cp)
	return nil
}

func (s *MemoryStore) Last(ctx context.Context) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return nil, nil
	}
	cp := *s.records[len(s.records)-1]
	return &cp, nil
}

func (s *MemoryStore) Range(ctx context.Context, from, to uint64) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, r := range s.records {
		if r.SequenceNumber < from {
			continue
		}
		if to != 0 && r.SequenceNumber > to {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Query(ctx context.Context, filter QueryFilter) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, r := range s.records {
		if !matchesFilter(r, filter) {
			continue
		}
		cp := *r
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Tamper overwrites a stored record in place. Only for integrity tests; a
// production store has no business exposing this.
func (s *MemoryStore) Tamper(sequence uint64, mutate func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.SequenceNumber == sequence {
			mutate(r)
			return nil
		}
	}
	return cit_errors.ErrRecordNotFound
}

func matchesFilter(r *Record, f QueryFilter) bool {
	if f.TenantID != "" && r.TenantID != f.TenantID {
		return false
	}
	if f.EventType != "" && r.EventType != f.EventType {
		return false
	}
	if f.ActorID != "" && r.ActorID != f.ActorID {
		return false
	}
	if f.Resource != "" && r.Resource != f.Resource {
		return false
	}
	if f.FromSequence != 0 && r.SequenceNumber < f.FromSequence {
		return false
	}
	if f.ToSequence != 0 && r.SequenceNumber > f.ToSequence {
		return false
	}
	if !f.From.IsZero() && r.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Timestamp.After(f.To) {
		return false
	}
	return true
}
