package policy_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ameet-kotian/citadel/audit"
	cit_errors "github.com/ameet-kotian/citadel/errors"
	"github.com/ameet-kotian/citadel/logging"
	"github.com/ameet-kotian/citadel/model"
	"github.com/ameet-kotian/citadel/pdp/engine"
	"github.com/ameet-kotian/citadel/policy"
	"github.com/ameet-kotian/citadel/util"
)

type serviceFixture struct {
	service     *policy.Service
	store       *policy.MemoryStore
	invalidator *recordingInvalidator
	auditEvents chan audit.Event
	busEvents   chan util.Event
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logging.InitTestLogger()

	compiler, err := engine.NewConditionEvaluator()
	require.NoError(t, err)

	store := policy.NewMemoryStore()
	invalidator := &recordingInvalidator{}
	auditEvents := make(chan audit.Event, 16)
	busEvents := make(chan util.Event, 16)

	bus := util.NewEventBus()
	for _, topic := range []string{
		util.TopicPolicyCreated,
		util.TopicPolicyUpdated,
		util.TopicPolicyDeleted,
		util.TopicPolicyActivated,
		util.TopicPolicyDeactivated,
	} {
		bus.Subscribe(topic, func(ctx context.Context, e util.Event) error {
			busEvents <- e
			return nil
		})
	}

	return &serviceFixture{
		service:     policy.NewService(store, compiler, invalidator, channelSink{auditEvents}, bus),
		store:       store,
		invalidator: invalidator,
		auditEvents: auditEvents,
		busEvents:   busEvents,
	}
}

func validPolicy() model.Policy {
	return model.Policy{
		TenantID:         "tenant-a",
		Name:             "allow-document-read",
		Type:             "access",
		Effect:           model.EffectAllow,
		Priority:         10,
		SubjectPatterns:  []string{"user:*"},
		ResourcePatterns: []string{"document:*"},
		ActionPatterns:   []string{"read"},
	}
}

func TestCreatePolicy_ValidationRejections(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*model.Policy)
		wantErr error
	}{
		{"missing name", func(p *model.Policy) { p.Name = "" }, cit_errors.ErrPolicyNameRequired},
		{"missing type", func(p *model.Policy) { p.Type = "" }, cit_errors.ErrPolicyTypeRequired},
		{"bad effect", func(p *model.Policy) { p.Effect = "MAYBE" }, cit_errors.ErrInvalidPolicyEffect},
		{"negative priority", func(p *model.Policy) { p.Priority = -1 }, cit_errors.ErrNegativePriority},
		{"break-glass priority too high", func(p *model.Policy) { p.BreakGlass = true; p.Priority = 101 }, cit_errors.ErrBreakGlassPriority},
		{"condition does not compile", func(p *model.Policy) { p.Condition = `ctx.risk_level ==` }, cit_errors.ErrInvalidCondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPolicy()
			tt.mutate(&p)
			_, err := f.service.CreatePolicy(ctx, p, "admin:1")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Nothing was persisted and no side effects fired.
	assert.Equal(t, 0, f.invalidator.count())
	assert.Empty(t, f.auditEvents)
}

func TestCreatePolicy_AssignsDefaultsAndSideEffects(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.CreatePolicy(ctx, validPolicy(), "admin:1")
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.StatusActive, created.Status)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.CreatedAt.IsZero())

	stored, err := f.store.GetPolicy(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, stored.Name)

	assert.Equal(t, []string{"tenant-a"}, f.invalidator.tenants())

	select {
	case e := <-f.busEvents:
		assert.Equal(t, util.TopicPolicyCreated, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no bus event published for create")
	}

	select {
	case e := <-f.auditEvents:
		assert.Equal(t, audit.EventPolicyCreate, e.EventType)
		assert.Equal(t, "admin:1", e.ActorID)
		assert.Equal(t, created.ID, e.TargetID)
		assert.Equal(t, "SUCCESS", e.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event appended for create")
	}
}

func TestCreatePolicy_BreakGlassWithinCeiling(t *testing.T) {
	f := newServiceFixture(t)

	p := validPolicy()
	p.BreakGlass = true
	p.Priority = model.BreakGlassMaxPriority
	created, err := f.service.CreatePolicy(context.Background(), p, "admin:1")
	require.NoError(t, err)
	assert.True(t, created.BreakGlass)
}

func TestUpdatePolicy_BumpsVersionAndPreservesProvenance(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.CreatePolicy(ctx, validPolicy(), "admin:1")
	require.NoError(t, err)

	changed := *created
	changed.Name = "allow-document-read-v2"
	changed.TenantID = "tenant-hijack"

	updated, err := f.service.UpdatePolicy(ctx, changed, "admin:2")
	require.NoError(t, err)

	assert.Equal(t, "allow-document-read-v2", updated.Name)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "tenant-a", updated.TenantID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpdatePolicy_RejectsDeleted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.CreatePolicy(ctx, validPolicy(), "admin:1")
	require.NoError(t, err)
	require.NoError(t, f.service.DeletePolicy(ctx, created.ID, "admin:1"))

	_, err = f.service.UpdatePolicy(ctx, *created, "admin:1")
	assert.ErrorIs(t, err, cit_errors.ErrPolicyAlreadyDeleted)
}

func TestDeletePolicy_SoftDeleteKeepsRecord(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.CreatePolicy(ctx, validPolicy(), "admin:1")
	require.NoError(t, err)

	require.NoError(t, f.service.DeletePolicy(ctx, created.ID, "admin:1"))

	stored, err := f.store.GetPolicy(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeleted, stored.Status)
	assert.Equal(t, 2, stored.Version)

	// Deleted policies never reach evaluation.
	applicable, err := f.store.GetApplicablePolicies(ctx, "tenant-a", "user:1", "document:1", "read")
	require.NoError(t, err)
	assert.Empty(t, applicable)

	// Deleting again is rejected, not idempotent-silent.
	assert.ErrorIs(t, f.service.DeletePolicy(ctx, created.ID, "admin:1"), cit_errors.ErrPolicyAlreadyDeleted)
}

func TestDeactivateAndActivatePolicy(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.CreatePolicy(ctx, validPolicy(), "admin:1")
	require.NoError(t, err)

	require.NoError(t, f.service.DeactivatePolicy(ctx, created.ID, "admin:1"))
	applicable, err := f.store.GetApplicablePolicies(ctx, "tenant-a", "user:1", "document:1", "read")
	require.NoError(t, err)
	assert.Empty(t, applicable)

	require.NoError(t, f.service.ActivatePolicy(ctx, created.ID, "admin:1"))
	applicable, err = f.store.GetApplicablePolicies(ctx, "tenant-a", "user:1", "document:1", "read")
	require.NoError(t, err)
	assert.Len(t, applicable, 1)
}

func TestTransition_UnknownPolicy(t *testing.T) {
	f := newServiceFixture(t)
	err := f.service.DeletePolicy(context.Background(), "no-such-id", "admin:1")
	assert.ErrorIs(t, err, cit_errors.ErrPolicyNotFound)
}

func TestMutations_EmitAuditTrail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.CreatePolicy(ctx, validPolicy(), "admin:1")
	require.NoError(t, err)
	require.NoError(t, f.service.DeactivatePolicy(ctx, created.ID, "admin:1"))
	require.NoError(t, f.service.ActivatePolicy(ctx, created.ID, "admin:1"))
	require.NoError(t, f.service.DeletePolicy(ctx, created.ID, "admin:1"))

	want := map[string]bool{
		audit.EventPolicyCreate:     false,
		audit.EventPolicyDeactivate: false,
		audit.EventPolicyActivate:   false,
		audit.EventPolicyDelete:     false,
	}
	for range want {
		select {
		case e := <-f.auditEvents:
			want[e.EventType] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("missing audit events, received so far: %v", want)
		}
	}
	for eventType, seen := range want {
		assert.True(t, seen, eventType)
	}
}

// recordingInvalidator captures tenant invalidations.
type recordingInvalidator struct {
	mu        sync.Mutex
	tenantIDs []string
}

func (r *recordingInvalidator) InvalidateTenant(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenantIDs = append(r.tenantIDs, tenantID)
	return nil
}

func (r *recordingInvalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tenantIDs)
}

func (r *recordingInvalidator) tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tenantIDs...)
}

// channelSink forwards audit events onto a channel for assertion.
type channelSink struct {
	events chan audit.Event
}

func (s channelSink) Append(ctx context.Context, event audit.Event) (*audit.Record, error) {
	s.events <- event
	return &audit.Record{}, nil
}
