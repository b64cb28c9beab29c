// audit/signer.go
package audit

// Signer is the extension point for cryptographic signing of audit records,
// e.g. by an external key-management service. The chain stores whatever the
// signer returns; signatures are not part of the hash chain itself.
type Signer interface {
	Sign(record *Record) (string, error)
}

// NoopSigner is the default: records carry no signature. Correctness tests
// run without any key-management dependency.
type NoopSigner struct{}

func (NoopSigner) Sign(*Record) (string, error) { return "", nil }
