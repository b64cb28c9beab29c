// risk/scorer.go
package risk

import (
	"strings"
	"time"

	"github.com/ameet-kotian/citadel/model"
)

// Risk level bands derived from the numeric score.
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelCritical = "critical"
)

// Scorer computes a bounded 0-100 risk score as the sum of six independent
// additive sub-scores (device, user, session, location, time of day,
// authentication specifics), clamped once at the end. It is pure: inputs are
// never mutated, and a nil or absent signal always contributes zero.
type Scorer struct {
	// highRiskCountries is matched case-insensitively against the session's
	// country code. Empty by default; populated from configuration or a
	// threat-intel feed.
	highRiskCountries []string
}

func NewScorer(highRiskCountries []string) *Scorer {
	return &Scorer{highRiskCountries: highRiskCountries}
}

// Score computes the total risk for the given signals at time now.
func (s *Scorer) Score(device *model.UserDevice, user *model.User, session *model.UserSession, countryCode string, now time.Time) float64 {
	total := s.deviceScore(device, now) +
		s.userScore(user, now) +
		s.sessionScore(session, now) +
		s.locationScore(countryCode) +
		s.timeOfDayScore(now) +
		s.authMethodScore(session)

	return clamp(total, 0, 100)
}

// Level maps a score onto a coarse band for use as a policy input.
func Level(score float64) string {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	default:
		return LevelLow
	}
}

// RequiresAdditionalVerification compares the score against the tenant's
// maximum, with the threshold lowered for sensitive actions: delete/admin
// actions use max(threshold-20, 30), export/download use max(threshold-10, 40).
func (s *Scorer) RequiresAdditionalVerification(score float64, action string, tenantThreshold float64) bool {
	threshold := tenantThreshold
	switch {
	case isDeleteOrAdminAction(action):
		threshold = max(tenantThreshold-20, 30)
	case isExportAction(action):
		threshold = max(tenantThreshold-10, 40)
	}
	return score > threshold
}

func (s *Scorer) deviceScore(device *model.UserDevice, now time.Time) float64 {
	if device == nil {
		return 0
	}
	var score float64

	if !device.FirstSeenAt.IsZero() {
		age := now.Sub(device.FirstSeenAt)
		if age < 24*time.Hour {
			score += 15
		} else if age < 7*24*time.Hour {
			score += 8
		}
	}

	score += (100 - device.TrustScore) * 0.2

	if device.Blocked {
		score += 50
	}
	if device.JailbrokenRooted {
		score += 25
	}
	if device.EmulatorDetected {
		score += 30
	}
	if device.TorDetected {
		score += 20
	}
	if device.VPNDetected {
		score += 10
	}

	attempts := device.FailedAuthentications + device.SuccessfulAuthentications
	if attempts > 0 {
		failureRate := float64(device.FailedAuthentications) / float64(attempts)
		score += failureRate * 15
	}

	return score
}

func (s *Scorer) userScore(user *model.User, now time.Time) float64 {
	if user == nil {
		return 0
	}
	var score float64

	switch user.Status {
	case model.UserSuspended:
		score += 40
	case model.UserLocked:
		score += 30
	}

	score += min(float64(user.FailedLoginAttempts)*3, 15)

	if !user.CreatedAt.IsZero() {
		age := now.Sub(user.CreatedAt)
		if age < 24*time.Hour {
			score += 10
		} else if age < 7*24*time.Hour {
			score += 5
		}
	}

	if !user.EmailVerified {
		score += 8
	}
	if !user.MFAEnabled {
		score += 5
	}

	if !user.PasswordChangedAt.IsZero() {
		pwAge := now.Sub(user.PasswordChangedAt)
		if pwAge > 365*24*time.Hour {
			score += 8
		} else if pwAge > 180*24*time.Hour {
			score += 4
		}
	}

	if !user.LastActivityAt.IsZero() {
		idle := now.Sub(user.LastActivityAt)
		if idle > 90*24*time.Hour {
			score += 6
		} else if idle > 30*24*time.Hour {
			score += 3
		}
	}

	return score
}

func (s *Scorer) sessionScore(session *model.UserSession, now time.Time) float64 {
	if session == nil {
		return 0
	}
	var score float64

	if session.ImpossibleTravel {
		score += 40
	}
	if session.FingerprintChanged {
		score += 20
	}

	if !session.StartedAt.IsZero() {
		duration := now.Sub(session.StartedAt)
		if duration > 24*time.Hour {
			score += 8
		} else if duration > 12*time.Hour {
			score += 4
		}
	}

	switch session.AuthenticationMethod {
	case model.AuthMethodPassword:
		score += 2
	case model.AuthMethodWebAuthn:
		score -= 2
	case model.AuthMethodMagicLink:
		score += 1
	case model.AuthMethodSocialOAuth:
		score += 1
	case model.AuthMethodDeviceCode:
		score += 3
	}

	if !session.MFACompleted {
		score += 8
	}

	return score
}

func (s *Scorer) locationScore(countryCode string) float64 {
	if countryCode == "" {
		return 0
	}
	for _, c := range s.highRiskCountries {
		if strings.EqualFold(c, countryCode) {
			return 10
		}
	}
	return 0
}

func (s *Scorer) timeOfDayScore(now time.Time) float64 {
	h := now.UTC().Hour()
	if h >= 2 && h < 6 {
		return 3
	}
	return 0
}

func (s *Scorer) authMethodScore(session *model.UserSession) float64 {
	if session == nil {
		return 0
	}
	var score float64

	for _, m := range session.MFAMethodsUsed {
		switch m {
		case model.MFAMethodSMS:
			score += 1
		case model.MFAMethodEmail:
			score += 0.5
		case model.MFAMethodTOTP:
			score -= 1
		case model.MFAMethodWebAuthn:
			score -= 2
		}
	}

	if session.StepUpRequired && !session.StepUpCompleted {
		score += 15
	}

	return score
}

func isDeleteOrAdminAction(action string) bool {
	a := strings.ToLower(action)
	return strings.Contains(a, "delete") || strings.Contains(a, "admin")
}

func isExportAction(action string) bool {
	a := strings.ToLower(action)
	return strings.Contains(a, "export") || strings.Contains(a, "download")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
