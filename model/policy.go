// model/policy.go
package model

import (
	"time"
)

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "ALLOW"
	EffectDeny  PolicyEffect = "DENY"
)

type PolicyStatus string

const (
	StatusActive   PolicyStatus = "ACTIVE"
	StatusInactive PolicyStatus = "INACTIVE"
	StatusDeleted  PolicyStatus = "DELETED"
)

// BreakGlassMaxPriority is the highest priority value a break-glass policy
// may carry: emergency policies must always evaluate early.
const BreakGlassMaxPriority = 100

type Policy struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenant_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        string       `json:"type"` // e.g. "access", "break_glass", "data_export"
	Effect      PolicyEffect `json:"effect"`

	// Priority orders evaluation: lower values evaluate earlier.
	Priority int          `json:"priority"`
	Status   PolicyStatus `json:"status"`

	// Patterns match the request's subject/resource/action identifiers.
	// Segments are colon-separated and `*` matches a whole segment; a
	// trailing `*` matches all remaining segments.
	SubjectPatterns  []string `json:"subject_patterns"`
	ResourcePatterns []string `json:"resource_patterns"`
	ActionPatterns   []string `json:"action_patterns"`

	// Condition is a CEL boolean expression over the request context.
	// An empty condition always holds.
	Condition string `json:"condition,omitempty"`

	TimeRestriction *TimeRestriction `json:"time_restriction,omitempty"`

	// IPRestrictions allows `*` or exact literal matches only. CIDR ranges
	// are intentionally not supported.
	IPRestrictions []string `json:"ip_restrictions,omitempty"`

	DeviceRestriction *DeviceRestriction `json:"device_restriction,omitempty"`

	// MaxRiskLevel is the highest request risk level this policy tolerates;
	// it is consumed as a policy input via the condition expression.
	MaxRiskLevel string `json:"max_risk_level,omitempty"`

	RequireMFA     bool `json:"require_mfa"`
	RequireStepUp  bool `json:"require_step_up"`
	RequireConsent bool `json:"require_consent"`

	// BreakGlass marks an emergency-access policy. Break-glass policies must
	// have Priority <= BreakGlassMaxPriority.
	BreakGlass bool `json:"break_glass"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeRestriction confines a policy to a UTC hour window, and optionally to
// certain weekdays. The window is half-open [StartHour, EndHour) and may wrap
// midnight (e.g. 22 -> 6).
type TimeRestriction struct {
	StartHour int            `json:"start_hour"`
	EndHour   int            `json:"end_hour"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
}

// Allows reports whether t falls inside the restriction window.
func (tr *TimeRestriction) Allows(t time.Time) bool {
	t = t.UTC()
	if len(tr.Weekdays) > 0 {
		dayOK := false
		for _, d := range tr.Weekdays {
			if t.Weekday() == d {
				dayOK = true
				break
			}
		}
		if !dayOK {
			return false
		}
	}
	h := t.Hour()
	if tr.StartHour == tr.EndHour {
		return true // degenerate window covers the whole day
	}
	if tr.StartHour < tr.EndHour {
		return h >= tr.StartHour && h < tr.EndHour
	}
	// window wraps midnight
	return h >= tr.StartHour || h < tr.EndHour
}

// DeviceRestriction narrows a policy to trusted or attested devices. It is
// interpreted against the request context (device_trusted, device_platform).
type DeviceRestriction struct {
	RequireTrusted   bool     `json:"require_trusted"`
	BlockedPlatforms []string `json:"blocked_platforms,omitempty"`
}

// IsDeleted reports whether the policy was soft-deleted. Deleted policies are
// never physically removed so historical decisions stay evaluable.
func (p *Policy) IsDeleted() bool {
	return p.Status == StatusDeleted
}

func (p *Policy) IsActive() bool {
	return p.Status == StatusActive
}

type PolicySearchCriteria struct {
	TenantID    string
	Name        string
	Effect      PolicyEffect
	MinPriority int
	MaxPriority int
	Status      *PolicyStatus
	Limit       int
}
