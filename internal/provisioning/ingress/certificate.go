package ingress

import (
	"context"
	"fmt"
	"time"
)

// CertState is a certificate lifecycle state.
type CertState string

// Certificate lifecycle states. Failed is terminal: a failed certificate is
// only recovered by starting a fresh issuance from Uninitialized.
const (
	CertUninitialized       CertState = "uninitialized"
	CertPendingChallenge    CertState = "pending_challenge"
	CertChallengeInProgress CertState = "challenge_in_progress"
	CertIssued              CertState = "issued"
	CertRenewing            CertState = "renewing"
	CertFailed              CertState = "failed"
)

// RenewalThreshold is how long before expiry a renewal starts.
const RenewalThreshold = 30 * 24 * time.Hour

// transitions is the full set of allowed state changes. Anything not listed
// here is a programming error, not an issuance failure.
var transitions = map[CertState][]CertState{
	CertUninitialized:       {CertPendingChallenge},
	CertPendingChallenge:    {CertChallengeInProgress, CertFailed},
	CertChallengeInProgress: {CertIssued, CertFailed},
	CertIssued:              {CertRenewing},
	CertRenewing:            {CertIssued, CertFailed},
	CertFailed:              {},
}

func canTransition(from, to CertState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Certificate tracks one hostname's certificate through its lifecycle.
type Certificate struct {
	Hostname string
	State    CertState
	ChainPEM []byte
	KeyPEM   []byte
	NotAfter time.Time
}

// NewCertificate starts a certificate in the uninitialized state.
func NewCertificate(hostname string) *Certificate {
	return &Certificate{Hostname: hostname, State: CertUninitialized}
}

// RestoreCertificate rebuilds a certificate from persisted state. Only the
// fields the graph records survive a restart; the chain and key live with
// the serving layer, not the graph.
func RestoreCertificate(hostname string, state CertState, notAfter time.Time) *Certificate {
	return &Certificate{Hostname: hostname, State: state, NotAfter: notAfter}
}

func (c *Certificate) transition(to CertState) error {
	if !canTransition(c.State, to) {
		return fmt.Errorf("certificate for %s: illegal transition %s -> %s", c.Hostname, c.State, to)
	}
	c.State = to
	return nil
}

// NeedsRenewal reports whether the certificate is issued and inside the
// renewal window at the given instant.
func (c *Certificate) NeedsRenewal(now time.Time) bool {
	return c.State == CertIssued && now.After(c.NotAfter.Add(-RenewalThreshold))
}

// Issuer drives certificates through the lifecycle against one ACME
// directory.
type Issuer struct {
	client    ACMEClient
	publisher ChallengePublisher
	now       func() time.Time
}

// NewIssuer creates an issuer. The client decides which directory (staging
// or production) the issuer talks to.
func NewIssuer(client ACMEClient, publisher ChallengePublisher) *Issuer {
	return &Issuer{client: client, publisher: publisher, now: time.Now}
}

// Issue obtains a certificate for an uninitialized entry. The certificate
// ends issued or failed; a failed certificate never reports as issued.
func (i *Issuer) Issue(ctx context.Context, cert *Certificate) error {
	if err := cert.transition(CertPendingChallenge); err != nil {
		return err
	}
	return i.obtain(ctx, cert)
}

// Renew re-issues an issued certificate. On failure the previous chain and
// expiry stay in place so serving continues on the old certificate, but the
// lifecycle ends failed: recovery is a fresh issuance on the next run, not
// a silent renewal retry.
func (i *Issuer) Renew(ctx context.Context, cert *Certificate) error {
	if err := cert.transition(CertRenewing); err != nil {
		return err
	}

	prev := *cert
	if err := i.obtain(ctx, cert); err != nil {
		cert.ChainPEM = prev.ChainPEM
		cert.KeyPEM = prev.KeyPEM
		cert.NotAfter = prev.NotAfter
		if terr := cert.transition(CertFailed); terr != nil {
			return terr
		}
		return &IssuanceError{Hostname: cert.Hostname, State: CertRenewing, Err: err}
	}
	return nil
}

// obtain runs the challenge and finalization, moving the certificate
// through ChallengeInProgress into Issued or Failed.
func (i *Issuer) obtain(ctx context.Context, cert *Certificate) error {
	if cert.State == CertPendingChallenge {
		if err := cert.transition(CertChallengeInProgress); err != nil {
			return err
		}
	}

	issued, err := i.client.Obtain(ctx, cert.Hostname, i.publisher)
	if err != nil {
		// The renewal path restores the previous chain and moves to
		// Failed itself.
		if cert.State == CertChallengeInProgress {
			if terr := cert.transition(CertFailed); terr != nil {
				return terr
			}
			return &IssuanceError{Hostname: cert.Hostname, State: CertChallengeInProgress, Err: err}
		}
		return err
	}

	cert.ChainPEM = issued.ChainPEM
	cert.KeyPEM = issued.KeyPEM
	cert.NotAfter = issued.NotAfter
	return cert.transition(CertIssued)
}
