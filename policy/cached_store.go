// policy/cached_store.go
package policy

import (
	"context"

	"go.uber.org/zap"

	"github.com/ameet-kotian/citadel/cache"
	logger "github.com/ameet-kotian/citadel/logging"
	"github.com/ameet-kotian/citadel/model"
	"github.com/ameet-kotian/citadel/util"
)

// CachedStore wraps a Store with a PolicyCache for applicable-policy lookups.
// It subscribes to policy mutation events on the bus so another holder of the
// same bus (the PolicyService) invalidates its entries synchronously on every
// mutation. Cache failures degrade to direct store reads, never to errors.
type CachedStore struct {
	inner Store
	cache cache.PolicyCache
}

func NewCachedStore(inner Store, policyCache cache.PolicyCache, eventBus *util.EventBus) *CachedStore {
	cs := &CachedStore{inner: inner, cache: policyCache}

	if eventBus != nil {
		for _, topic := range []string{
			util.TopicPolicyCreated,
			util.TopicPolicyUpdated,
			util.TopicPolicyDeleted,
			util.TopicPolicyActivated,
			util.TopicPolicyDeactivated,
		} {
			eventBus.Subscribe(topic, cs.handlePolicyChanged)
		}
	}
	return cs
}

func (cs *CachedStore) handlePolicyChanged(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.Policy)
	if !ok {
		logger.Warn("Unexpected policy event payload", zap.String("type", event.Type))
		return nil
	}
	return cs.cache.InvalidateTenant(ctx, policy.TenantID)
}

func (cs *CachedStore) GetApplicablePolicies(ctx context.Context, tenantID, subject, resource, action string) ([]*model.Policy, error) {
	key := cache.Key{TenantID: tenantID, Subject: subject, Resource: resource, Action: action}

	if policies, hit, err := cs.cache.Get(ctx, key); err != nil {
		logger.Warn("Policy cache read failed, falling through to store", zap.Error(err))
	} else if hit {
		return policies, nil
	}

	policies, err := cs.inner.GetApplicablePolicies(ctx, tenantID, subject, resource, action)
	if err != nil {
		return nil, err
	}
	if err := cs.cache.Set(ctx, key, policies); err != nil {
		logger.Warn("Policy cache write failed", zap.Error(err))
	}
	return policies, nil
}

func (cs *CachedStore) GetAllActivePolicies(ctx context.Context, tenantID string) ([]*model.Policy, error) {
	return cs.inner.GetAllActivePolicies(ctx, tenantID)
}

func (cs *CachedStore) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	return cs.inner.GetPolicy(ctx, policyID)
}

func (cs *CachedStore) SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	return cs.inner.SearchPolicies(ctx, criteria)
}

func (cs *CachedStore) CreatePolicy(ctx context.Context, policy *model.Policy) error {
	return cs.inner.CreatePolicy(ctx, policy)
}

func (cs *CachedStore) UpdatePolicy(ctx context.Context, policy *model.Policy) error {
	return cs.inner.UpdatePolicy(ctx, policy)
}

// InvalidateTenant drops the tenant's cached lookups. The policy service
// calls this synchronously on every mutation to bound staleness.
func (cs *CachedStore) InvalidateTenant(ctx context.Context, tenantID string) error {
	return cs.cache.InvalidateTenant(ctx, tenantID)
}
