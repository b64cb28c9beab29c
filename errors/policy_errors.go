// errors/policy_errors.go
package errors

import "errors"

var (
	ErrPolicyNotFound         = errors.New("policy not found")
	ErrInvalidPolicy          = errors.New("invalid policy")
	ErrPolicyNameRequired     = errors.New("policy name is required")
	ErrPolicyTypeRequired     = errors.New("policy type is required")
	ErrInvalidPolicyEffect    = errors.New("policy effect must be ALLOW or DENY")
	ErrNegativePriority       = errors.New("policy priority must be non-negative")
	ErrBreakGlassPriority     = errors.New("break-glass policy priority must not exceed 100")
	ErrInvalidCondition       = errors.New("policy condition does not compile")
	ErrPolicyAlreadyDeleted   = errors.New("policy is already deleted")
	ErrPolicyStoreUnavailable = errors.New("policy store unavailable")
)
