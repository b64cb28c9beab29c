package audit_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ameet-kotian/citadel/audit"
	cit_errors "github.com/ameet-kotian/citadel/errors"
	"github.com/ameet-kotian/citadel/logging"
)

func newChain(t *testing.T, store audit.Store) *audit.Chain {
	t.Helper()
	logging.InitTestLogger()
	chain, err := audit.NewChain(context.Background(), store, nil, 16)
	require.NoError(t, err)
	t.Cleanup(chain.Close)
	return chain
}

func event(i int) audit.Event {
	return audit.Event{
		TenantID:  "tenant-a",
		EventType: audit.EventAuthorizationDecision,
		ActorID:   fmt.Sprintf("user:%d", i),
		TargetID:  fmt.Sprintf("user:%d", i),
		Resource:  "document:readme",
		Action:    "read",
		Outcome:   "ALLOW",
	}
}

func TestChain_AppendLinksRecords(t *testing.T) {
	store := audit.NewMemoryStore()
	chain := newChain(t, store)
	ctx := context.Background()

	var records []*audit.Record
	for i := 0; i < 5; i++ {
		r, err := chain.Append(ctx, event(i))
		require.NoError(t, err)
		records = append(records, r)
	}

	for i, r := range records {
		assert.Equal(t, uint64(i+1), r.SequenceNumber)
		assert.Equal(t, r.ComputeHash(), r.Hash)
		if i == 0 {
			assert.Empty(t, r.PreviousHash)
		} else {
			assert.Equal(t, records[i-1].Hash, r.PreviousHash)
		}
	}

	result, err := chain.VerifyChain(ctx, 0, 0)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 5, result.RecordsChecked)
}

func TestChain_ConcurrentAppendsAreGapless(t *testing.T) {
	const writers = 8
	const perWriter = 25

	store := audit.NewMemoryStore()
	chain := newChain(t, store)

	var wg sync.WaitGroup
	sequences := make(chan uint64, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				r, err := chain.Append(context.Background(), event(w*perWriter+i))
				assert.NoError(t, err)
				sequences <- r.SequenceNumber
			}
		}(w)
	}
	wg.Wait()
	close(sequences)

	var got []uint64
	for s := range sequences {
		got = append(got, s)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	require.Len(t, got, writers*perWriter)
	for i, s := range got {
		assert.Equal(t, uint64(i+1), s)
	}

	result, err := chain.VerifyChain(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, writers*perWriter, result.RecordsChecked)
}

func TestChain_VerifyDetectsMutation(t *testing.T) {
	store := audit.NewMemoryStore()
	chain := newChain(t, store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := chain.Append(ctx, event(i))
		require.NoError(t, err)
	}

	require.NoError(t, store.Tamper(3, func(r *audit.Record) {
		r.Outcome = "DENY"
	}))

	result, err := chain.VerifyChain(ctx, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cit_errors.ErrChainIntegrity))
	assert.False(t, result.Valid)
	assert.Equal(t, uint64(3), result.FirstInvalidSequence)
}

func TestChain_VerifyDetectsRecomputedHashSwap(t *testing.T) {
	store := audit.NewMemoryStore()
	chain := newChain(t, store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := chain.Append(ctx, event(i))
		require.NoError(t, err)
	}

	// Recomputing the hash after mutating the payload keeps the record
	// self-consistent, but breaks the successor's previous-hash link.
	require.NoError(t, store.Tamper(2, func(r *audit.Record) {
		r.Outcome = "DENY"
		r.Hash = r.ComputeHash()
	}))

	result, err := chain.VerifyChain(ctx, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cit_errors.ErrChainIntegrity))
	assert.False(t, result.Valid)
	assert.Equal(t, uint64(3), result.FirstInvalidSequence)
	assert.Equal(t, "previous-hash link broken", result.Detail)
}

func TestChain_VerifyDetectsSequenceGap(t *testing.T) {
	store := audit.NewMemoryStore()
	chain := newChain(t, store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := chain.Append(ctx, event(i))
		require.NoError(t, err)
	}

	require.NoError(t, store.Tamper(3, func(r *audit.Record) {
		r.SequenceNumber = 9
		r.Hash = r.ComputeHash()
	}))

	result, err := chain.VerifyChain(ctx, 0, 0)
	require.Error(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "sequence gap", result.Detail)
}

func TestChain_VerifyRange(t *testing.T) {
	store := audit.NewMemoryStore()
	chain := newChain(t, store)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := chain.Append(ctx, event(i))
		require.NoError(t, err)
	}

	result, err := chain.VerifyChain(ctx, 4, 7)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 4, result.RecordsChecked)
}

func TestChain_AppendAfterCloseFails(t *testing.T) {
	logging.InitTestLogger()
	chain, err := audit.NewChain(context.Background(), audit.NewMemoryStore(), nil, 4)
	require.NoError(t, err)

	_, err = chain.Append(context.Background(), event(0))
	require.NoError(t, err)

	chain.Close()

	_, err = chain.Append(context.Background(), event(1))
	assert.ErrorIs(t, err, cit_errors.ErrChainClosed)
}

func TestChain_RecoversTailAcrossRestart(t *testing.T) {
	logging.InitTestLogger()
	store := audit.NewMemoryStore()
	ctx := context.Background()

	first, err := audit.NewChain(ctx, store, nil, 4)
	require.NoError(t, err)
	var lastHash string
	for i := 0; i < 3; i++ {
		r, err := appendEvent(first, i)
		require.NoError(t, err)
		lastHash = r.Hash
	}
	first.Close()

	second, err := audit.NewChain(ctx, store, nil, 4)
	require.NoError(t, err)
	defer second.Close()

	r, err := appendEvent(second, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), r.SequenceNumber)
	assert.Equal(t, lastHash, r.PreviousHash)

	result, err := second.VerifyChain(ctx, 0, 0)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 4, result.RecordsChecked)
}

func appendEvent(c *audit.Chain, i int) (*audit.Record, error) {
	return c.Append(context.Background(), event(i))
}

func TestChain_FailedPersistDoesNotAdvanceTail(t *testing.T) {
	logging.InitTestLogger()
	store := &flakyStore{inner: audit.NewMemoryStore()}
	chain, err := audit.NewChain(context.Background(), store, nil, 4)
	require.NoError(t, err)
	defer chain.Close()
	ctx := context.Background()

	_, err = chain.Append(ctx, event(0))
	require.NoError(t, err)

	store.failNext = true
	_, err = chain.Append(ctx, event(1))
	require.Error(t, err)

	r, err := chain.Append(ctx, event(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.SequenceNumber)

	result, err := chain.VerifyChain(ctx, 0, 0)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.RecordsChecked)
}

func TestChain_Query(t *testing.T) {
	store := audit.NewMemoryStore()
	chain := newChain(t, store)
	ctx := context.Background()

	_, err := chain.Append(ctx, event(1))
	require.NoError(t, err)
	other := event(2)
	other.TenantID = "tenant-b"
	_, err = chain.Append(ctx, other)
	require.NoError(t, err)

	records, err := chain.Query(ctx, audit.QueryFilter{TenantID: "tenant-b"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tenant-b", records[0].TenantID)
}

func TestSQLiteStore_RoundTripAndRecovery(t *testing.T) {
	logging.InitTestLogger()
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	store, err := audit.NewSQLiteStore(ctx, path)
	require.NoError(t, err)

	chain, err := audit.NewChain(ctx, store, nil, 4)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := chain.Append(ctx, event(i))
		require.NoError(t, err)
	}
	chain.Close()
	require.NoError(t, store.Close())

	reopened, err := audit.NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	last, err := reopened.Last(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(3), last.SequenceNumber)

	records, err := reopened.Range(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, uint64(i+1), r.SequenceNumber)
		assert.Equal(t, r.ComputeHash(), r.Hash)
	}

	chain2, err := audit.NewChain(ctx, reopened, nil, 4)
	require.NoError(t, err)
	defer chain2.Close()

	r, err := chain2.Append(ctx, event(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), r.SequenceNumber)
	assert.Equal(t, records[2].Hash, r.PreviousHash)

	result, err := chain2.VerifyChain(ctx, 0, 0)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	byActor, err := reopened.Query(ctx, audit.QueryFilter{ActorID: "user:2"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "user:2", byActor[0].ActorID)
}

// flakyStore fails exactly one Append when armed.
type flakyStore struct {
	inner    *audit.MemoryStore
	failNext bool
}

func (s *flakyStore) Append(ctx context.Context, record *audit.Record) error {
	if s.failNext {
		s.failNext = false
		return errors.New("disk full")
	}
	return s.inner.Append(ctx, record)
}

func (s *flakyStore) Last(ctx context.Context) (*audit.Record, error) {
	return s.inner.Last(ctx)
}

func (s *flakyStore) Range(ctx context.Context, from, to uint64) ([]*audit.Record, error) {
	return s.inner.Range(ctx, from, to)
}

func (s *flakyStore) Query(ctx context.Context, filter audit.QueryFilter) ([]*audit.Record, error) {
	return s.inner.Query(ctx, filter)
}
