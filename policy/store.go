// policy/store.go
package policy

import (
	"context"
	"sort"
	"strings"
	"sync"

	cit_errors "github.com/ameet-kotian/citadel/errors"
	"github.com/ameet-kotian/citadel/model"
)

// Store is the persistence seam for policies. GetApplicablePolicies returns
// active, non-deleted policies whose patterns match the request tuple, sorted
// ascending by priority. Database-backed implementations plug in here; the
// core ships an in-memory one.
type Store interface {
	GetApplicablePolicies(ctx context.Context, tenantID, subject, resource, action string) ([]*model.Policy, error)
	GetAllActivePolicies(ctx context.Context, tenantID string) ([]*model.Policy, error)
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error)
	CreatePolicy(ctx context.Context, policy *model.Policy) error
	UpdatePolicy(ctx context.Context, policy *model.Policy) error
}

// MemoryStore keeps policies in process memory, indexed by tenant. Safe for
// concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*model.Policy          // id -> policy
	byTenant map[string]map[string]struct{}    // tenant -> policy ids
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]*model.Policy),
		byTenant: make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) GetApplicablePolicies(ctx context.Context, tenantID, subject, resource, action string) ([]*model.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Policy
	for id := range s.byTenant[tenantID] {
		p := s.policies[id]
		if !p.IsActive() {
			continue
		}
		if !p.AppliesTo(subject, resource, action) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sortByPriority(out)
	return out, nil
}

func (s *MemoryStore) GetAllActivePolicies(ctx context.Context, tenantID string) ([]*model.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Policy
	for id := range s.byTenant[tenantID] {
		p := s.policies[id]
		if !p.IsActive() {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sortByPriority(out)
	return out, nil
}

func (s *MemoryStore) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[policyID]
	if !ok {
		return nil, cit_errors.ErrPolicyNotFound
	}
	cp := *p
	return &cp, nil
}

// SearchPolicies filters a tenant's policies by the authoring-surface
// criteria, sorted ascending by priority. Deleted policies are included only
// when the criteria ask for them by status.
func (s *MemoryStore) SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Policy
	for id := range s.byTenant[criteria.TenantID] {
		p := s.policies[id]
		if !matchesCriteria(p, criteria) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sortByPriority(out)
	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}

func matchesCriteria(p *model.Policy, c model.PolicySearchCriteria) bool {
	if c.Status != nil {
		if p.Status != *c.Status {
			return false
		}
	} else if p.IsDeleted() {
		return false
	}
	if c.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(c.Name)) {
		return false
	}
	if c.Effect != "" && p.Effect != c.Effect {
		return false
	}
	if p.Priority < c.MinPriority {
		return false
	}
	if c.MaxPriority > 0 && p.Priority > c.MaxPriority {
		return false
	}
	return true
}

func (s *MemoryStore) CreatePolicy(ctx context.Context, policy *model.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *policy
	s.policies[cp.ID] = &cp
	ids, ok := s.byTenant[cp.TenantID]
	if !ok {
		ids = make(map[string]struct{})
		s.byTenant[cp.TenantID] = ids
	}
	ids[cp.ID] = struct{}{}
	return nil
}

func (s *MemoryStore) UpdatePolicy(ctx context.Context, policy *model.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[policy.ID]; !ok {
		return cit_errors.ErrPolicyNotFound
	}
	cp := *policy
	s.policies[cp.ID] = &cp
	return nil
}

func sortByPriority(policies []*model.Policy) {
	sort.SliceStable(policies, func(i, j int) bool {
		return policies[i].Priority < policies[j].Priority
	})
}
