package model

type Decision string

const (
	DecisionAllow         Decision = "ALLOW"
	DecisionDeny          Decision = "DENY"
	DecisionNotApplicable Decision = "NOT_APPLICABLE"
)

// PolicyEvaluation is the per-policy outcome. It is produced fresh on every
// evaluation call and never persisted on its own; only the aggregate decision
// is audited.
type PolicyEvaluation struct {
	PolicyID   string   `json:"policy_id"`
	PolicyName string   `json:"policy_name"`
	Decision   Decision `json:"decision"`
	Reason     string   `json:"reason"`
}
