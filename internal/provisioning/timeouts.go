package provisioning

import "time"

// Timeouts bounds the engine's per-operation waits. Expired waits surface as
// TimeoutError; retrying is the caller's decision.
type Timeouts struct {
	ControlPlaneReady time.Duration
	ControlPlanePoll  time.Duration
	CertificateIssue  time.Duration
}

// DefaultTimeouts returns the default operation timeouts.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		ControlPlaneReady: 20 * time.Minute,
		ControlPlanePoll:  15 * time.Second,
		CertificateIssue:  5 * time.Minute,
	}
}
