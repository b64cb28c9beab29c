// policy/service.go
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ameet-kotian/citadel/audit"
	cit_errors "github.com/ameet-kotian/citadel/errors"
	logger "github.com/ameet-kotian/citadel/logging"
	"github.com/ameet-kotian/citadel/model"
	"github.com/ameet-kotian/citadel/util"
)

// ConditionCompiler validates condition expressions at authoring time so
// malformed predicates never reach the evaluation path.
type ConditionCompiler interface {
	Compile(expr string) error
}

// CacheInvalidator drops a tenant's cached policy lookups.
type CacheInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// AuditSink receives policy mutation audit events, asynchronously.
type AuditSink interface {
	Append(ctx context.Context, event audit.Event) (*audit.Record, error)
}

// Service is the policy authoring surface: create, update, soft-delete,
// activate and deactivate. Every mutation validates first, then persists,
// then synchronously invalidates the tenant's cached lookups, publishes a
// mutation event on the bus and appends a policy.<action> audit event.
type Service struct {
	store       Store
	compiler    ConditionCompiler
	invalidator CacheInvalidator
	auditor     AuditSink
	eventBus    *util.EventBus
}

func NewService(store Store, compiler ConditionCompiler, invalidator CacheInvalidator, auditor AuditSink, eventBus *util.EventBus) *Service {
	return &Service{
		store:       store,
		compiler:    compiler,
		invalidator: invalidator,
		auditor:     auditor,
		eventBus:    eventBus,
	}
}

// CreatePolicy validates and persists a new policy, initially ACTIVE unless
// the caller set a status.
func (s *Service) CreatePolicy(ctx context.Context, policy model.Policy, actorID string) (*model.Policy, error) {
	if err := s.validate(&policy); err != nil {
		return nil, err
	}

	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	if policy.Status == "" {
		policy.Status = model.StatusActive
	}
	now := time.Now().UTC()
	policy.CreatedAt = now
	policy.UpdatedAt = now
	policy.Version = 1

	if err := s.store.CreatePolicy(ctx, &policy); err != nil {
		logger.Error("Error creating policy", zap.Error(err), zap.String("actorID", actorID))
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	s.afterMutation(ctx, &policy, actorID, util.TopicPolicyCreated, audit.EventPolicyCreate)
	logger.Info("Policy created", zap.String("policyID", policy.ID), zap.String("tenantID", policy.TenantID))
	return &policy, nil
}

// UpdatePolicy validates and persists changes to an existing policy.
func (s *Service) UpdatePolicy(ctx context.Context, policy model.Policy, actorID string) (*model.Policy, error) {
	if err := s.validate(&policy); err != nil {
		return nil, err
	}

	existing, err := s.store.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted() {
		return nil, cit_errors.ErrPolicyAlreadyDeleted
	}

	policy.TenantID = existing.TenantID
	policy.CreatedAt = existing.CreatedAt
	policy.UpdatedAt = time.Now().UTC()
	policy.Version = existing.Version + 1

	if err := s.store.UpdatePolicy(ctx, &policy); err != nil {
		logger.Error("Error updating policy", zap.Error(err), zap.String("policyID", policy.ID))
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}

	s.afterMutation(ctx, &policy, actorID, util.TopicPolicyUpdated, audit.EventPolicyUpdate)
	logger.Info("Policy updated", zap.String("policyID", policy.ID), zap.Int("version", policy.Version))
	return &policy, nil
}

// DeletePolicy soft-deletes: the policy is marked DELETED and kept forever so
// historical decisions stay evaluable and audit trails stay resolvable.
func (s *Service) DeletePolicy(ctx context.Context, policyID, actorID string) error {
	return s.transition(ctx, policyID, actorID, model.StatusDeleted, util.TopicPolicyDeleted, audit.EventPolicyDelete)
}

// ActivatePolicy transitions a policy to ACTIVE.
func (s *Service) ActivatePolicy(ctx context.Context, policyID, actorID string) error {
	return s.transition(ctx, policyID, actorID, model.StatusActive, util.TopicPolicyActivated, audit.EventPolicyActivate)
}

// DeactivatePolicy transitions a policy to INACTIVE.
func (s *Service) DeactivatePolicy(ctx context.Context, policyID, actorID string) error {
	return s.transition(ctx, policyID, actorID, model.StatusInactive, util.TopicPolicyDeactivated, audit.EventPolicyDeactivate)
}

// GetPolicy retrieves a policy by id.
func (s *Service) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	return s.store.GetPolicy(ctx, policyID)
}

// SearchPolicies lists a tenant's policies matching the criteria, sorted
// ascending by priority.
func (s *Service) SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	return s.store.SearchPolicies(ctx, criteria)
}

func (s *Service) transition(ctx context.Context, policyID, actorID string, status model.PolicyStatus, topic, eventType string) error {
	existing, err := s.store.GetPolicy(ctx, policyID)
	if err != nil {
		return err
	}
	if existing.IsDeleted() {
		return cit_errors.ErrPolicyAlreadyDeleted
	}

	existing.Status = status
	existing.UpdatedAt = time.Now().UTC()
	existing.Version++

	if err := s.store.UpdatePolicy(ctx, existing); err != nil {
		logger.Error("Error transitioning policy status",
			zap.Error(err),
			zap.String("policyID", policyID),
			zap.String("status", string(status)))
		return fmt.Errorf("failed to transition policy: %w", err)
	}

	s.afterMutation(ctx, existing, actorID, topic, eventType)
	logger.Info("Policy status changed",
		zap.String("policyID", policyID),
		zap.String("status", string(status)))
	return nil
}

// afterMutation runs the shared post-persistence steps: synchronous cache
// invalidation (bounds staleness), event publication, async audit append.
func (s *Service) afterMutation(ctx context.Context, policy *model.Policy, actorID, topic, eventType string) {
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateTenant(ctx, policy.TenantID); err != nil {
			logger.Warn("Failed to invalidate tenant policy cache",
				zap.Error(err),
				zap.String("tenantID", policy.TenantID))
		}
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, topic, *policy)
	}

	if s.auditor != nil {
		event := audit.Event{
			TenantID:  policy.TenantID,
			EventType: eventType,
			ActorID:   actorID,
			TargetID:  policy.ID,
			Resource:  "policy:" + policy.ID,
			Action:    eventType,
			Outcome:   "SUCCESS",
		}
		go func() {
			if _, err := s.auditor.Append(context.Background(), event); err != nil {
				logger.Error("Audit append failed for policy mutation",
					zap.String("eventType", event.EventType),
					zap.String("policyID", event.TargetID),
					zap.Error(err))
			}
		}()
	}
}

// validate enforces the authoring invariants before anything is persisted.
func (s *Service) validate(policy *model.Policy) error {
	if policy.Name == "" {
		return cit_errors.ErrPolicyNameRequired
	}
	if policy.Type == "" {
		return cit_errors.ErrPolicyTypeRequired
	}
	if policy.Effect != model.EffectAllow && policy.Effect != model.EffectDeny {
		return cit_errors.ErrInvalidPolicyEffect
	}
	if policy.Priority < 0 {
		return cit_errors.ErrNegativePriority
	}
	if policy.BreakGlass && policy.Priority > model.BreakGlassMaxPriority {
		return cit_errors.ErrBreakGlassPriority
	}
	if policy.Condition != "" && s.compiler != nil {
		if err := s.compiler.Compile(policy.Condition); err != nil {
			return fmt.Errorf("%w: %v", cit_errors.ErrInvalidCondition, err)
		}
	}
	return nil
}
