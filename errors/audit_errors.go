// errors/audit_errors.go
package errors

import "errors"

var (
	// ErrChainIntegrity marks a hash-chain verification mismatch. It is a
	// higher-severity class than ordinary persistence errors and must be
	// surfaced to operators separately.
	ErrChainIntegrity = errors.New("audit chain integrity violation")

	ErrAuditStoreUnavailable = errors.New("audit store unavailable")
	ErrChainClosed           = errors.New("audit chain is closed")
	ErrRecordNotFound        = errors.New("audit record not found")
)
