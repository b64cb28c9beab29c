// audit/chain.go
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cit_errors "github.com/ameet-kotian/citadel/errors"
	logger "github.com/ameet-kotian/citadel/logging"
)

// Chain is the append-only, hash-linked audit ledger. A single owning
// goroutine holds the tail (last hash + sequence counter), so sequence
// reservation and previous-hash lookup are serialized by construction: two
// concurrent appenders can never observe the same "last record", which would
// branch the chain.
type Chain struct {
	store  Store
	signer Signer

	mu       sync.RWMutex
	closed   bool
	requests chan appendRequest
	done     chan struct{}
}

type appendRequest struct {
	event Event
	resp  chan appendResponse
}

type appendResponse struct {
	record *Record
	err    error
}

// NewChain recovers the tail from the store and starts the writer goroutine.
// A nil signer defaults to NoopSigner.
func NewChain(ctx context.Context, store Store, signer Signer, queueSize int) (*Chain, error) {
	if signer == nil {
		signer = NoopSigner{}
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	last, err := store.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover chain tail: %w", err)
	}
	var (
		lastHash string
		sequence uint64
	)
	if last != nil {
		lastHash = last.Hash
		sequence = last.SequenceNumber
	}

	c := &Chain{
		store:    store,
		signer:   signer,
		requests: make(chan appendRequest, queueSize),
		done:     make(chan struct{}),
	}
	go c.run(lastHash, sequence)
	return c, nil
}

// Append sequences, hashes, signs and durably persists the event, returning
// the completed record. Safe for any number of concurrent callers.
func (c *Chain) Append(ctx context.Context, event Event) (*Record, error) {
	req := appendRequest{event: event, resp: make(chan appendResponse, 1)}

	// The read lock is held across the enqueue so Close cannot close the
	// requests channel between the closed check and the send.
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, cit_errors.ErrChainClosed
	}
	select {
	case c.requests <- req:
		c.mu.RUnlock()
	case <-ctx.Done():
		c.mu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case resp := <-req.resp:
		return resp.record, resp.err
	case <-ctx.Done():
		// The writer will still process the request; the caller just stops
		// waiting for the result.
		return nil, ctx.Err()
	}
}

// Close stops the writer after draining queued appends. Safe to call more
// than once; later Append calls fail with ErrChainClosed.
func (c *Chain) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.requests)
	}
	c.mu.Unlock()
	<-c.done
}

// run is the single writer. It owns lastHash and sequence exclusively.
func (c *Chain) run(lastHash string, sequence uint64) {
	defer close(c.done)

	for req := range c.requests {
		record := &Record{
			ID:             uuid.NewString(),
			SequenceNumber: sequence + 1,
			Timestamp:      time.Now().UTC(),
			TenantID:       req.event.TenantID,
			EventType:      req.event.EventType,
			ActorID:        req.event.ActorID,
			TargetID:       req.event.TargetID,
			Resource:       req.event.Resource,
			Action:         req.event.Action,
			Outcome:        req.event.Outcome,
			PreviousHash:   lastHash,
		}
		record.Hash = record.ComputeHash()

		sig, err := c.signer.Sign(record)
		if err != nil {
			// Signing is an extension hook; a failing signer must not stall
			// the ledger. The record goes in unsigned.
			logger.Warn("Audit record signing failed", zap.Uint64("sequence", record.SequenceNumber), zap.Error(err))
		} else {
			record.Signature = sig
		}

		// Persist durably before advancing the tail and replying.
		if err := c.store.Append(context.Background(), record); err != nil {
			req.resp <- appendResponse{err: fmt.Errorf("failed to persist audit record: %w", err)}
			continue
		}

		lastHash = record.Hash
		sequence = record.SequenceNumber
		req.resp <- appendResponse{record: record}
	}
}

// VerifyChain recomputes every record hash in [from, to] (to == 0 means the
// current tail) and checks previous-hash linkage plus sequence contiguity.
// The result identifies the first invalid sequence; a failed verification is
// an integrity violation, reported as cit_errors.ErrChainIntegrity distinct
// from ordinary store errors.
func (c *Chain) VerifyChain(ctx context.Context, from, to uint64) (*VerificationResult, error) {
	records, err := c.store.Range(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read records for verification: %w", err)
	}

	result := &VerificationResult{Valid: true}
	var prev *Record
	for _, r := range records {
		result.RecordsChecked++

		if recomputed := r.ComputeHash(); recomputed != r.Hash {
			return invalid(result, r.SequenceNumber, "stored hash does not match recomputed hash")
		}
		if prev != nil {
			if r.SequenceNumber != prev.SequenceNumber+1 {
				return invalid(result, r.SequenceNumber, "sequence gap")
			}
			if r.PreviousHash != prev.Hash {
				return invalid(result, r.SequenceNumber, "previous-hash link broken")
			}
		} else if from <= 1 && r.SequenceNumber == 1 && r.PreviousHash != "" {
			return invalid(result, r.SequenceNumber, "genesis record carries a previous hash")
		}
		prev = r
	}
	return result, nil
}

// Query reads records from the backing store.
func (c *Chain) Query(ctx context.Context, filter QueryFilter) ([]*Record, error) {
	return c.store.Query(ctx, filter)
}

func invalid(result *VerificationResult, seq uint64, detail string) (*VerificationResult, error) {
	result.Valid = false
	result.FirstInvalidSequence = seq
	result.Detail = detail
	return result, fmt.Errorf("%w: sequence %d: %s", cit_errors.ErrChainIntegrity, seq, detail)
}
