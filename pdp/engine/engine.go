package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ameet-kotian/citadel/audit"
	logger "github.com/ameet-kotian/citadel/logging"
	"github.com/ameet-kotian/citadel/model"
	pdp_model "github.com/ameet-kotian/citadel/pdp/model"
)

// PolicyProvider supplies the policies applicable to a request tuple, sorted
// ascending by priority and pre-filtered to active, non-deleted policies.
type PolicyProvider interface {
	GetApplicablePolicies(ctx context.Context, tenantID, subject, resource, action string) ([]*model.Policy, error)
}

// AuditSink receives the engine's decision records. Appends are issued
// asynchronously and best-effort: a failed append is logged, never returned
// to the authorization caller.
type AuditSink interface {
	Append(ctx context.Context, event audit.Event) (*audit.Record, error)
}

// AuthorizationEngine orchestrates policy retrieval, evaluation, precedence
// resolution, batching and continuous re-authorization. It is safe for
// concurrent use.
type AuthorizationEngine struct {
	policies  PolicyProvider
	evaluator *PolicyEvaluator
	auditor   AuditSink
}

func NewAuthorizationEngine(policies PolicyProvider, evaluator *PolicyEvaluator, auditor AuditSink) *AuthorizationEngine {
	return &AuthorizationEngine{
		policies:  policies,
		evaluator: evaluator,
		auditor:   auditor,
	}
}

// Authorize evaluates every applicable policy and resolves precedence:
// explicit deny beats allow, and no matching policy means default deny.
// Every failure path fails closed. The decision is returned before the audit
// append completes.
func (e *AuthorizationEngine) Authorize(ctx context.Context, request pdp_model.AuthorizationRequest) pdp_model.AuthorizationDecision {
	decision := e.decide(ctx, &request)
	e.auditDecision(&request, &decision)
	return decision
}

func (e *AuthorizationEngine) decide(ctx context.Context, request *pdp_model.AuthorizationRequest) pdp_model.AuthorizationDecision {
	if request.Timestamp.IsZero() {
		request.Timestamp = time.Now().UTC()
	}

	policies, err := e.policies.GetApplicablePolicies(ctx, request.TenantID, request.Subject, request.Resource, request.Action)
	if err != nil {
		logger.Error("Policy retrieval failed, denying request",
			zap.String("tenantID", request.TenantID),
			zap.String("subject", request.Subject),
			zap.Error(err))
		return pdp_model.AuthorizationDecision{
			Decision:  pdp_model.DecisionDeny,
			Reason:    fmt.Sprintf("policy retrieval failed: %v", err),
			Timestamp: time.Now().UTC(),
		}
	}

	// Evaluate every policy with no short-circuiting: the complete evaluation
	// list is required for audit even though only precedence decides.
	evaluations := make([]pdp_model.PolicyEvaluation, 0, len(policies))
	var obligations []pdp_model.Obligation
	anyDeny, anyAllow := false, false

	for _, policy := range policies {
		if policy == nil || policy.IsDeleted() || !policy.IsActive() {
			continue
		}
		eval := e.evaluator.Evaluate(policy, request)
		evaluations = append(evaluations, eval)

		switch eval.Decision {
		case pdp_model.DecisionDeny:
			anyDeny = true
		case pdp_model.DecisionAllow:
			anyAllow = true
			obligations = append(obligations, obligationsFor(policy)...)
		}
	}

	decision := pdp_model.AuthorizationDecision{
		Evaluations: evaluations,
		Timestamp:   time.Now().UTC(),
	}
	switch {
	case anyDeny:
		decision.Decision = pdp_model.DecisionDeny
		decision.Reason = "explicit deny overrides allow"
	case anyAllow:
		decision.Decision = pdp_model.DecisionAllow
		decision.Reason = "allowed by policy"
		decision.Obligations = obligations
	default:
		decision.Decision = pdp_model.DecisionDeny
		decision.Reason = "no applicable allow policy - default deny"
	}
	return decision
}

// BatchAuthorize evaluates requests partitioned by tenant, one goroutine per
// tenant group, and returns decisions in input order. Each decision is
// identical to a standalone Authorize call; batching changes performance,
// not semantics.
func (e *AuthorizationEngine) BatchAuthorize(ctx context.Context, requests []pdp_model.AuthorizationRequest) []pdp_model.AuthorizationDecision {
	decisions := make([]pdp_model.AuthorizationDecision, len(requests))

	groups := make(map[string][]int)
	for i, req := range requests {
		groups[req.TenantID] = append(groups[req.TenantID], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, indices := range groups {
		indices := indices
		g.Go(func() error {
			// Groups share no mutable state: each goroutine writes only its
			// own result slots, so one tenant can never corrupt another.
			for _, i := range indices {
				decisions[i] = e.Authorize(gctx, requests[i])
			}
			return nil
		})
	}
	// Authorize never returns an error (it fails closed into the decision),
	// so Wait only synchronizes the fan-in.
	_ = g.Wait()

	return decisions
}

// ContinuousAuthorization re-checks a long-lived session's access. Inactive
// or high-risk sessions are denied immediately without consulting the policy
// store; otherwise a full Authorize runs so policy changes made since the
// session began take effect. Freshness is the caller's responsibility: there
// is no push-based invalidation.
func (e *AuthorizationEngine) ContinuousAuthorization(ctx context.Context, session *model.UserSession, resource, action string) bool {
	if session == nil || !session.Active {
		return false
	}
	if session.HighRisk {
		logger.Warn("Continuous authorization denied for high-risk session",
			zap.String("sessionID", session.ID),
			zap.String("userID", session.UserID))
		return false
	}

	reqCtx := map[string]any{
		pdp_model.CtxSessionID:       session.ID,
		pdp_model.CtxRiskLevel:       session.RiskLevel,
		pdp_model.CtxAuthMethod:      session.AuthenticationMethod,
		pdp_model.CtxMFACompleted:    session.MFACompleted,
		pdp_model.CtxStepUpCompleted: session.StepUpCompleted,
	}
	if session.ClientIP != "" {
		reqCtx[pdp_model.CtxClientIP] = session.ClientIP
	}

	request := pdp_model.NewAuthorizationRequest(
		session.TenantID,
		"user:"+session.UserID,
		resource,
		action,
		reqCtx,
	)
	decision := e.Authorize(ctx, request)
	return decision.Allowed()
}

// auditDecision fires the audit append without blocking the caller. The
// append uses a background context so a caller cancelling right after
// receiving its decision does not lose the record.
func (e *AuthorizationEngine) auditDecision(request *pdp_model.AuthorizationRequest, decision *pdp_model.AuthorizationDecision) {
	if e.auditor == nil {
		return
	}
	event := audit.Event{
		TenantID:  request.TenantID,
		EventType: audit.EventAuthorizationDecision,
		ActorID:   request.Subject,
		TargetID:  request.Subject,
		Resource:  request.Resource,
		Action:    request.Action,
		Outcome:   string(decision.Decision),
	}
	go func() {
		if _, err := e.auditor.Append(context.Background(), event); err != nil {
			logger.Error("Audit append failed for authorization decision",
				zap.String("tenantID", event.TenantID),
				zap.String("subject", event.ActorID),
				zap.Error(err))
		}
	}()
}

func obligationsFor(policy *model.Policy) []pdp_model.Obligation {
	var obs []pdp_model.Obligation
	if policy.RequireMFA {
		obs = append(obs, pdp_model.Obligation{Type: pdp_model.ObligationRequireMFA, PolicyID: policy.ID})
	}
	if policy.RequireStepUp {
		obs = append(obs, pdp_model.Obligation{Type: pdp_model.ObligationRequireStepUp, PolicyID: policy.ID})
	}
	if policy.RequireConsent {
		obs = append(obs, pdp_model.Obligation{Type: pdp_model.ObligationRequireConsent, PolicyID: policy.ID})
	}
	return obs
}
