package ingress

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"time"

	"golang.org/x/crypto/acme"
)

// ACME directory endpoints. Staging issuance always runs before production
// so a misconfigured solver burns staging quota, not production rate limits.
const (
	StagingDirectoryURL    = "https://acme-staging-v02.api.letsencrypt.org/directory"
	ProductionDirectoryURL = "https://acme-v02.api.letsencrypt.org/directory"
)

// IssuedCertificate is the result of a completed ACME order.
type IssuedCertificate struct {
	ChainPEM []byte
	KeyPEM   []byte
	NotAfter time.Time
}

// ACMEClient obtains a certificate for a hostname, publishing the HTTP-01
// challenge through the given publisher while the order is validated.
type ACMEClient interface {
	Obtain(ctx context.Context, hostname string, publisher ChallengePublisher) (*IssuedCertificate, error)
}

// Client is the ACME client backed by one directory endpoint.
type Client struct {
	DirectoryURL string
	ContactEmail string
}

// NewClient creates an ACME client for the given directory.
func NewClient(directoryURL, contactEmail string) *Client {
	return &Client{DirectoryURL: directoryURL, ContactEmail: contactEmail}
}

// Obtain implements ACMEClient. It registers a fresh account, runs the
// HTTP-01 challenge for the hostname, and finalizes the order.
func (c *Client) Obtain(ctx context.Context, hostname string, publisher ChallengePublisher) (*IssuedCertificate, error) {
	accountKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate account key: %w", err)
	}

	cl := &acme.Client{Key: accountKey, DirectoryURL: c.DirectoryURL}
	account := &acme.Account{Contact: []string{"mailto:" + c.ContactEmail}}
	if _, err := cl.Register(ctx, account, acme.AcceptTOS); err != nil {
		return nil, fmt.Errorf("failed to register account: %w", err)
	}

	order, err := cl.AuthorizeOrder(ctx, acme.DomainIDs(hostname))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, authzURL := range order.AuthzURLs {
		if err := c.satisfyAuthorization(ctx, cl, authzURL, publisher); err != nil {
			return nil, err
		}
	}

	if _, err := cl.WaitOrder(ctx, order.URI); err != nil {
		return nil, fmt.Errorf("order did not become ready: %w", err)
	}

	certKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate key: %w", err)
	}
	csr, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: hostname},
		DNSNames: []string{hostname},
	}, certKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSR: %w", err)
	}

	der, _, err := cl.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize order: %w", err)
	}

	return encodeIssued(der, certKey)
}

func (c *Client) satisfyAuthorization(ctx context.Context, cl *acme.Client, authzURL string, publisher ChallengePublisher) error {
	authz, err := cl.GetAuthorization(ctx, authzURL)
	if err != nil {
		return fmt.Errorf("failed to fetch authorization: %w", err)
	}
	if authz.Status == acme.StatusValid {
		return nil
	}

	var challenge *acme.Challenge
	for _, ch := range authz.Challenges {
		if ch.Type == "http-01" {
			challenge = ch
			break
		}
	}
	if challenge == nil {
		return fmt.Errorf("authorization %s offers no http-01 challenge", authzURL)
	}

	keyAuth, err := cl.HTTP01ChallengeResponse(challenge.Token)
	if err != nil {
		return fmt.Errorf("failed to compute challenge response: %w", err)
	}

	if err := publisher.Publish(ctx, challenge.Token, keyAuth); err != nil {
		return fmt.Errorf("failed to publish challenge: %w", err)
	}
	defer func() {
		// Teardown failure does not fail the order; the solver resources
		// are namespaced and re-published on the next issuance.
		_ = publisher.Unpublish(context.WithoutCancel(ctx), challenge.Token)
	}()

	if _, err := cl.Accept(ctx, challenge); err != nil {
		return fmt.Errorf("failed to accept challenge: %w", err)
	}
	if _, err := cl.WaitAuthorization(ctx, authzURL); err != nil {
		return fmt.Errorf("authorization did not validate: %w", err)
	}
	return nil
}

func encodeIssued(der [][]byte, key *ecdsa.PrivateKey) (*IssuedCertificate, error) {
	if len(der) == 0 {
		return nil, fmt.Errorf("order finalized with an empty chain")
	}

	leaf, err := x509.ParseCertificate(der[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse issued leaf: %w", err)
	}

	var chain []byte
	for _, block := range der {
		chain = append(chain, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: block})...)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode certificate key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return &IssuedCertificate{ChainPEM: chain, KeyPEM: keyPEM, NotAfter: leaf.NotAfter}, nil
}
