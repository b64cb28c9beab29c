package model

import (
	"time"
)

// Well-known context attribute keys.
const (
	CtxClientIP        = "client_ip"
	CtxSessionID       = "session_id"
	CtxRiskLevel       = "risk_level"
	CtxRiskScore       = "risk_score"
	CtxAuthMethod      = "authentication_method"
	CtxMFACompleted    = "mfa_completed"
	CtxStepUpCompleted = "step_up_completed"
	CtxDeviceTrusted   = "device_trusted"
	CtxDevicePlatform  = "device_platform"
)

// AuthorizationRequest asks: may Subject perform Action on Resource, given
// Context? The struct is treated as immutable once constructed; Context is
// copied at construction so callers cannot mutate it afterwards.
type AuthorizationRequest struct {
	TenantID  string         `json:"tenant_id"`
	Subject   string         `json:"subject"` // e.g. "user:42"
	Resource  string         `json:"resource"`
	Action    string         `json:"action"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewAuthorizationRequest builds a request with a defensive copy of ctx and
// the timestamp stamped now.
func NewAuthorizationRequest(tenantID, subject, resource, action string, ctx map[string]any) AuthorizationRequest {
	cp := make(map[string]any, len(ctx))
	for k, v := range ctx {
		cp[k] = v
	}
	return AuthorizationRequest{
		TenantID:  tenantID,
		Subject:   subject,
		Resource:  resource,
		Action:    action,
		Context:   cp,
		Timestamp: time.Now().UTC(),
	}
}

// ContextString returns the named context attribute as a string, or "" when
// absent or not a string.
func (r *AuthorizationRequest) ContextString(key string) string {
	if v, ok := r.Context[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ContextBool returns the named context attribute as a bool; absent or
// non-bool values read as false.
func (r *AuthorizationRequest) ContextBool(key string) bool {
	if v, ok := r.Context[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}
