// Package ingress provisions the external entry point and drives the ACME
// certificate lifecycle, staging directory first, then production.
package ingress

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/graph"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/topology"
	"github.com/cloudplane/cloudplane/internal/util/retry"
	"github.com/cloudplane/cloudplane/pkg/cloud"
)

const stage = "ingress"

// Provisioner applies the ingress and certificate graph nodes.
type Provisioner struct {
	Staging    *Issuer
	Production *Issuer

	// Now is the clock used for renewal decisions; overridable in tests.
	Now func() time.Time
}

// NewProvisioner creates the ingress stage with the two issuers.
func NewProvisioner(staging, production *Issuer) *Provisioner {
	return &Provisioner{Staging: staging, Production: production, Now: time.Now}
}

// Name implements provisioning.Stage.
func (p *Provisioner) Name() string {
	return stage
}

// Provision implements provisioning.Stage. The load balancer comes first,
// then the staging certificate, then production. A staging failure stops
// the stage before any production attempt.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	if err := p.applyLoadBalancer(ctx); err != nil {
		return err
	}
	if err := p.applyCertificate(ctx, provisioning.NodeCertStaging, p.Staging); err != nil {
		return err
	}
	return p.applyCertificate(ctx, provisioning.NodeCertProduction, p.Production)
}

func (p *Provisioner) applyLoadBalancer(ctx *provisioning.Context) error {
	subnets := ctx.State.SubnetIDs[topology.TierPublic]
	if len(subnets) == 0 {
		return fmt.Errorf("no public subnets available for the entry point")
	}

	hash, err := ctx.DesiredHash(provisioning.NodeIngress)
	if err != nil {
		return err
	}

	err = provisioning.ApplyNode(ctx, stage, provisioning.NodeIngress, hash, func() (map[string]string, error) {
		var lb *cloud.LoadBalancer
		rerr := retry.WithExponentialBackoff(ctx, func() error {
			var err error
			lb, err = ctx.Cloud.Ingress().EnsureLoadBalancer(ctx, ctx.Spec.ClusterName+"-ingress", subnets, ctx.State.AccessPolicyIDs[access.RoleIngress])
			return err
		})
		if rerr != nil {
			return nil, fmt.Errorf("failed to ensure load balancer: %w", rerr)
		}
		return map[string]string{
			provisioning.OutIngressID:       lb.ID,
			provisioning.OutIngressHostname: lb.Hostname,
		}, nil
	})
	if err != nil {
		return err
	}

	node := ctx.Graph.Node(provisioning.NodeIngress)
	ctx.State.LoadBalancer = &cloud.LoadBalancer{
		ID:       node.Outputs[provisioning.OutIngressID],
		Hostname: node.Outputs[provisioning.OutIngressHostname],
	}
	return nil
}

// applyCertificate runs the node lifecycle by hand instead of through
// ApplyNode: an unchanged spec hash must still re-apply when the issued
// certificate has entered its renewal window.
func (p *Provisioner) applyCertificate(ctx *provisioning.Context, nodeID string, issuer *Issuer) error {
	node := ctx.Graph.Node(nodeID)
	if node == nil {
		return fmt.Errorf("graph node %s is not registered", nodeID)
	}

	hash, err := ctx.DesiredHash(nodeID)
	if err != nil {
		return err
	}
	cert := p.restore(ctx.Spec.Ingress.Hostname, node)

	if !node.NeedsApply(hash) && !cert.NeedsRenewal(p.Now()) {
		ctx.Metrics.NodesTotal.WithLabelValues("skipped").Inc()
		ctx.Observer.Event(provisioning.Event{Type: provisioning.EventNodeSkipped, Stage: stage, Node: nodeID, Message: "unchanged, skipping"})
		return nil
	}

	node.MarkApplying(hash)
	ctx.Observer.Event(provisioning.Event{Type: provisioning.EventNodeApplying, Stage: stage, Node: nodeID})

	// The ACME exchange waits on external challenge validation; bound it
	// so a stuck directory cannot stall the whole run.
	ictx, cancel := context.WithTimeout(ctx, ctx.Timeouts.CertificateIssue)
	defer cancel()

	if cert.State == CertIssued {
		err = issuer.Renew(ictx, cert)
	} else {
		// Anything not currently issued, including a previously failed
		// certificate, starts a fresh issuance.
		cert = NewCertificate(ctx.Spec.Ingress.Hostname)
		err = issuer.Issue(ictx, cert)
	}

	node.Outputs[provisioning.OutCertState] = string(cert.State)
	if !cert.NotAfter.IsZero() {
		node.Outputs[provisioning.OutCertNotAfter] = cert.NotAfter.UTC().Format(time.RFC3339)
	}

	if err != nil {
		node.MarkFailed(err)
		ctx.Metrics.NodesTotal.WithLabelValues("failed").Inc()
		ctx.Observer.Event(provisioning.Event{Type: provisioning.EventNodeFailed, Stage: stage, Node: nodeID, Message: err.Error()})
		return err
	}

	node.MarkApplied(nil)
	ctx.Metrics.NodesTotal.WithLabelValues("applied").Inc()
	ctx.Observer.Event(provisioning.Event{Type: provisioning.EventNodeApplied, Stage: stage, Node: nodeID})
	return nil
}

// restore rebuilds the certificate lifecycle position from the node's
// persisted outputs.
func (p *Provisioner) restore(hostname string, node *graph.Node) *Certificate {
	state := CertState(node.Outputs[provisioning.OutCertState])
	if state == "" {
		state = CertUninitialized
	}
	var notAfter time.Time
	if raw := node.Outputs[provisioning.OutCertNotAfter]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			notAfter = t
		}
	}
	return RestoreCertificate(hostname, state, notAfter)
}
