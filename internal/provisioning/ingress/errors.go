package ingress

import "fmt"

// IssuanceError reports a failed certificate issuance or renewal, including
// the lifecycle state the failure happened in.
type IssuanceError struct {
	Hostname string
	State    CertState
	Err      error
}

func (e *IssuanceError) Error() string {
	return fmt.Sprintf("certificate issuance for %s failed during %s: %v", e.Hostname, e.State, e.Err)
}

func (e *IssuanceError) Unwrap() error {
	return e.Err
}
