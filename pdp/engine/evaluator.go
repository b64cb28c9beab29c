package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	logger "github.com/ameet-kotian/citadel/logging"
	"github.com/ameet-kotian/citadel/model"
	pdp_model "github.com/ameet-kotian/citadel/pdp/model"
)

// PolicyEvaluator evaluates a single policy against a single request. It is
// pure and stateless apart from the shared compiled-condition cache, so any
// number of goroutines may call it concurrently.
type PolicyEvaluator struct {
	conditions *ConditionEvaluator
}

func NewPolicyEvaluator(conditions *ConditionEvaluator) *PolicyEvaluator {
	return &PolicyEvaluator{conditions: conditions}
}

// Evaluate runs the policy's gates in order:
//
//  1. subject/resource/action applicability (mismatch -> NOT_APPLICABLE)
//  2. condition expression (false -> NOT_APPLICABLE: conditions narrow scope,
//     they do not veto)
//  3. time restriction (violated -> DENY)
//  4. IP restriction (violated -> DENY)
//  5. the policy's configured effect
//
// Any internal error is translated to a local DENY evaluation so a single bad
// policy can never abort or open up the rest of the batch.
func (pe *PolicyEvaluator) Evaluate(policy *model.Policy, request *pdp_model.AuthorizationRequest) (result pdp_model.PolicyEvaluation) {
	result = pdp_model.PolicyEvaluation{
		PolicyID:   policy.ID,
		PolicyName: policy.Name,
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Policy evaluation panicked",
				zap.String("policyID", policy.ID),
				zap.Any("panic", r))
			result.Decision = pdp_model.DecisionDeny
			result.Reason = fmt.Sprintf("evaluation error: %v", r)
		}
	}()

	// Applicability gate
	if !policy.AppliesTo(request.Subject, request.Resource, request.Action) {
		result.Decision = pdp_model.DecisionNotApplicable
		result.Reason = "policy does not apply"
		return result
	}

	// Condition gate
	if policy.Condition != "" {
		held, err := pe.conditions.Holds(policy.Condition, request)
		if err != nil {
			logger.Warn("Policy condition failed to evaluate",
				zap.String("policyID", policy.ID),
				zap.Error(err))
			result.Decision = pdp_model.DecisionDeny
			result.Reason = fmt.Sprintf("evaluation error: %v", err)
			return result
		}
		if !held {
			result.Decision = pdp_model.DecisionNotApplicable
			result.Reason = "condition not satisfied"
			return result
		}
	}

	// Time-restriction gate: a violated restriction actively denies, unlike
	// a failed condition which only removes the policy from consideration.
	if policy.TimeRestriction != nil && !policy.TimeRestriction.Allows(request.Timestamp) {
		result.Decision = pdp_model.DecisionDeny
		result.Reason = "time restriction violated"
		return result
	}

	// IP-restriction gate: `*` or exact literal only, no CIDR.
	if len(policy.IPRestrictions) > 0 {
		clientIP := request.ContextString(pdp_model.CtxClientIP)
		if !ipAllowed(policy.IPRestrictions, clientIP) {
			result.Decision = pdp_model.DecisionDeny
			result.Reason = "IP restriction violated"
			return result
		}
	}

	// Device-restriction gate follows the same restriction semantics.
	if policy.DeviceRestriction != nil && !deviceAllowed(policy.DeviceRestriction, request) {
		result.Decision = pdp_model.DecisionDeny
		result.Reason = "device restriction violated"
		return result
	}

	// All gates passed: the outcome is the policy's configured effect.
	if policy.Effect == model.EffectDeny {
		result.Decision = pdp_model.DecisionDeny
		result.Reason = "policy denied"
	} else {
		result.Decision = pdp_model.DecisionAllow
		result.Reason = "policy allowed"
	}
	return result
}

func ipAllowed(restrictions []string, clientIP string) bool {
	for _, entry := range restrictions {
		if entry == "*" {
			return true
		}
		if clientIP != "" && entry == clientIP {
			return true
		}
	}
	return false
}

func deviceAllowed(dr *model.DeviceRestriction, request *pdp_model.AuthorizationRequest) bool {
	if dr.RequireTrusted && !request.ContextBool(pdp_model.CtxDeviceTrusted) {
		return false
	}
	if platform := request.ContextString(pdp_model.CtxDevicePlatform); platform != "" {
		for _, blocked := range dr.BlockedPlatforms {
			if strings.EqualFold(blocked, platform) {
				return false
			}
		}
	}
	return true
}
