package model

import "time"

// AuthorizationDecision is the aggregate outcome of one authorization call.
// Evaluations carries every per-policy result, in evaluation order, for audit
// and debugging even though only the precedence outcome drives Decision.
type AuthorizationDecision struct {
	Decision    Decision           `json:"decision"` // ALLOW or DENY only
	Reason      string             `json:"reason"`
	Evaluations []PolicyEvaluation `json:"evaluations,omitempty"`
	Obligations []Obligation       `json:"obligations,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Allowed is a convenience accessor for callers that only care about the
// binary outcome.
func (d *AuthorizationDecision) Allowed() bool {
	return d.Decision == DecisionAllow
}

// Obligation instructs the caller to perform an extra step before honoring an
// ALLOW (e.g. prompt for MFA). Obligations never flip the decision itself.
type Obligation struct {
	Type     string `json:"type"` // "require_mfa", "require_step_up", "require_consent"
	PolicyID string `json:"policy_id"`
}

const (
	ObligationRequireMFA     = "require_mfa"
	ObligationRequireStepUp  = "require_step_up"
	ObligationRequireConsent = "require_consent"
)
