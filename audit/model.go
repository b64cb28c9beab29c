// audit/model.go
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Event types recorded by the core.
const (
	EventAuthorizationDecision = "authorization.decision"
	EventPolicyCreate          = "policy.create"
	EventPolicyUpdate          = "policy.update"
	EventPolicyDelete          = "policy.delete"
	EventPolicyActivate        = "policy.activate"
	EventPolicyDeactivate      = "policy.deactivate"
)

// Event is what callers hand to the chain: the descriptive fields of a record
// before sequencing and hashing.
type Event struct {
	TenantID  string `json:"tenant_id"`
	EventType string `json:"event_type"`
	ActorID   string `json:"actor_id"`
	TargetID  string `json:"target_id"`
	Resource  string `json:"resource"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
}

// Record is one link of the hash chain, immutable once appended. Hash covers
// the canonical concatenation of every descriptive field plus the sequence
// number and PreviousHash, so mutating any historical record invalidates it
// and every later record.
type Record struct {
	ID             string    `json:"id"`
	SequenceNumber uint64    `json:"sequence_number"`
	Timestamp      time.Time `json:"timestamp"`
	TenantID       string    `json:"tenant_id"`
	EventType      string    `json:"event_type"`
	ActorID        string    `json:"actor_id"`
	TargetID       string    `json:"target_id"`
	Resource       string    `json:"resource"`
	Action         string    `json:"action"`
	Outcome        string    `json:"outcome"`
	PreviousHash   string    `json:"previous_hash"` // empty for the genesis record
	Hash           string    `json:"hash"`
	Signature      string    `json:"signature,omitempty"`
}

// ComputeHash returns the SHA-256 hex digest of the record's canonical field
// concatenation. The timestamp is rendered as RFC3339Nano UTC so the digest
// is reproducible from stored fields.
func (r *Record) ComputeHash() string {
	canonical := strings.Join([]string{
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.TenantID,
		r.EventType,
		r.ActorID,
		r.TargetID,
		r.Resource,
		r.Action,
		r.Outcome,
		strconv.FormatUint(r.SequenceNumber, 10),
		r.PreviousHash,
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// QueryFilter selects records from a store. Zero values mean "no constraint".
type QueryFilter struct {
	TenantID     string
	EventType    string
	ActorID      string
	Resource     string
	FromSequence uint64
	ToSequence   uint64 // inclusive; 0 means open-ended
	From         time.Time
	To           time.Time
	Limit        int
}

// VerificationResult reports the outcome of a chain verification pass.
type VerificationResult struct {
	Valid                bool   `json:"valid"`
	RecordsChecked       int    `json:"records_checked"`
	FirstInvalidSequence uint64 `json:"first_invalid_sequence,omitempty"`
	Detail               string `json:"detail,omitempty"`
}
