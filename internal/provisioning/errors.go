package provisioning

import (
	"fmt"
	"time"
)

// TimeoutError reports that a per-operation wait expired. It is retryable by
// the caller; the engine never retries internally, since unbounded retry
// loops mask persistent failures as transient ones.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not complete within %s", e.Op, e.Timeout)
}

// ComputeError reports a compute cluster provisioning failure. The run halts
// and dependents are not attempted.
type ComputeError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ComputeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compute provisioning failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("compute provisioning failed: %s", e.Reason)
}

// Unwrap exposes the underlying cause.
func (e *ComputeError) Unwrap() error { return e.Err }

// DatastoreError reports a managed datastore provisioning failure for one
// datastore kind. The run halts rather than attempting the dependent ingress
// stage against a half-provisioned backend.
type DatastoreError struct {
	Kind string // "relational" or "cache"
	Err  error
}

// Error implements the error interface.
func (e *DatastoreError) Error() string {
	return fmt.Sprintf("%s datastore provisioning failed: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *DatastoreError) Unwrap() error { return e.Err }
