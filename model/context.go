// model/context.go
package model

import "time"

// Context objects consumed by the risk scorer and the authorization engine.
// All of them are read-only inputs: the engine and scorer never mutate them.

type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserSuspended UserStatus = "SUSPENDED"
	UserLocked    UserStatus = "LOCKED"
)

// Authentication method identifiers as they appear in session records.
const (
	AuthMethodPassword    = "password"
	AuthMethodWebAuthn    = "webauthn"
	AuthMethodMagicLink   = "magic_link"
	AuthMethodSocialOAuth = "social_oauth"
	AuthMethodDeviceCode  = "device_code"
)

// MFA method identifiers.
const (
	MFAMethodSMS      = "sms"
	MFAMethodEmail    = "email"
	MFAMethodTOTP     = "totp"
	MFAMethodWebAuthn = "webauthn"
)

type User struct {
	ID                  string     `json:"id"`
	TenantID            string     `json:"tenant_id"`
	Status              UserStatus `json:"status"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	MFAEnabled          bool       `json:"mfa_enabled"`
	EmailVerified       bool       `json:"email_verified"`
	CreatedAt           time.Time  `json:"created_at"`
	PasswordChangedAt   time.Time  `json:"password_changed_at"`
	LastActivityAt      time.Time  `json:"last_activity_at"`
}

type UserDevice struct {
	ID                        string    `json:"id"`
	TrustScore                float64   `json:"trust_score"` // 0..100
	Blocked                   bool      `json:"blocked"`
	JailbrokenRooted          bool      `json:"jailbroken_rooted"`
	EmulatorDetected          bool      `json:"emulator_detected"`
	TorDetected               bool      `json:"tor_detected"`
	VPNDetected               bool      `json:"vpn_detected"`
	FirstSeenAt               time.Time `json:"first_seen_at"`
	SuccessfulAuthentications int       `json:"successful_authentications"`
	FailedAuthentications     int       `json:"failed_authentications"`
	AttestationVerified       bool      `json:"attestation_verified"`
	AttestationSupported      bool      `json:"attestation_supported"`
}

type UserSession struct {
	ID                   string    `json:"id"`
	TenantID             string    `json:"tenant_id"`
	UserID               string    `json:"user_id"`
	Active               bool      `json:"active"`
	HighRisk             bool      `json:"high_risk"`
	RiskLevel            string    `json:"risk_level"`
	AuthenticationMethod string    `json:"authentication_method"`
	MFACompleted         bool      `json:"mfa_completed"`
	MFAMethodsUsed       []string  `json:"mfa_methods_used,omitempty"`
	StepUpRequired       bool      `json:"step_up_required"`
	StepUpCompleted      bool      `json:"step_up_completed"`
	ImpossibleTravel     bool      `json:"impossible_travel"`
	FingerprintChanged   bool      `json:"fingerprint_changed"`
	StartedAt            time.Time `json:"started_at"`
	ClientIP             string    `json:"client_ip,omitempty"`
}

// TenantSettings carries the per-tenant knobs the core consumes.
type TenantSettings struct {
	TenantID   string     `json:"tenant_id"`
	RiskPolicy RiskPolicy `json:"risk_policy"`
}

type RiskPolicy struct {
	// MaxRiskScore is the tenant ceiling fed to
	// RiskScorer.RequiresAdditionalVerification.
	MaxRiskScore float64 `json:"max_risk_score"`
}
