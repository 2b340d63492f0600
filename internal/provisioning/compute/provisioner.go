// Package compute provisions the container-orchestration control plane and
// the worker node pool spread across the private compute subnets.
package compute

import (
	"fmt"
	"time"

	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/topology"
	"github.com/cloudplane/cloudplane/internal/util/retry"
	"github.com/cloudplane/cloudplane/pkg/cloud"
)

const stage = "compute"

// Provisioner applies the compute graph node.
type Provisioner struct {
	// Health optionally probes the control plane's readiness endpoint
	// after the cloud reports it active. Nil disables the probe.
	Health HealthChecker
}

// NewProvisioner creates the compute stage.
func NewProvisioner(health HealthChecker) *Provisioner {
	return &Provisioner{Health: health}
}

// Name implements provisioning.Stage.
func (p *Provisioner) Name() string {
	return stage
}

// Provision implements provisioning.Stage.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	subnets := ctx.State.SubnetIDs[topology.TierCompute]
	if len(subnets) == 0 {
		return &provisioning.ComputeError{Reason: "no compute subnets available"}
	}

	hash, err := ctx.DesiredHash(provisioning.NodeCompute)
	if err != nil {
		return err
	}

	err = provisioning.ApplyNode(ctx, stage, provisioning.NodeCompute, hash, func() (map[string]string, error) {
		cp, err := p.ensureControlPlane(ctx, subnets)
		if err != nil {
			return nil, err
		}

		if err := p.waitForReady(ctx, cp); err != nil {
			return nil, err
		}

		poolID, err := p.ensureNodePool(ctx, subnets)
		if err != nil {
			return nil, err
		}

		return map[string]string{
			provisioning.OutControlPlaneAPI: cp.Endpoint,
			provisioning.OutControlPlaneCA:  cp.CACert,
			provisioning.OutNodePoolID:      poolID,
			provisioning.OutBootstrapCmd:    bootstrapCommand(ctx.Spec),
		}, nil
	})
	if err != nil {
		return err
	}

	node := ctx.Graph.Node(provisioning.NodeCompute)
	ctx.State.ControlPlane = &cloud.ControlPlane{
		Name:     ctx.Spec.ClusterName,
		Endpoint: node.Outputs[provisioning.OutControlPlaneAPI],
		CACert:   node.Outputs[provisioning.OutControlPlaneCA],
		Status:   cloud.StatusActive,
	}
	ctx.State.NodePoolID = node.Outputs[provisioning.OutNodePoolID]

	return nil
}

func (p *Provisioner) ensureControlPlane(ctx *provisioning.Context, subnets []string) (*cloud.ControlPlane, error) {
	var cp *cloud.ControlPlane
	err := retry.WithExponentialBackoff(ctx, func() error {
		var err error
		cp, err = ctx.Cloud.Compute().EnsureControlPlane(ctx, ctx.Spec.ClusterName, ctx.Spec.Nodes.KubeVersion, subnets)
		return err
	})
	if err != nil {
		return nil, &provisioning.ComputeError{Reason: "failed to ensure control plane", Err: err}
	}
	return cp, nil
}

// waitForReady polls the control plane status until it reports active. On
// timeout it returns a TimeoutError the caller may retry; it is not
// auto-retried here since a second blind provisioning pass risks
// double-provisioning.
func (p *Provisioner) waitForReady(ctx *provisioning.Context, cp *cloud.ControlPlane) error {
	timeout := ctx.Timeouts.ControlPlaneReady
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(ctx.Timeouts.ControlPlanePoll)
	defer tick.Stop()

	for {
		status, err := ctx.Cloud.Compute().ControlPlaneStatus(ctx, cp.Name)
		if err != nil {
			return &provisioning.ComputeError{Reason: "failed to poll control plane status", Err: err}
		}

		switch status {
		case cloud.StatusActive:
			if p.Health != nil {
				if err := p.Health.Ready(ctx, cp); err != nil {
					return &provisioning.ComputeError{Reason: "control plane readiness probe failed", Err: err}
				}
			}
			return nil
		case cloud.StatusFailed:
			return &provisioning.ComputeError{Reason: fmt.Sprintf("control plane %s entered failed state", cp.Name)}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled while waiting for control plane: %w", ctx.Err())
		case <-deadline.C:
			return &provisioning.TimeoutError{Op: "wait for control plane ready", Timeout: timeout}
		case <-tick.C:
		}
	}
}

func (p *Provisioner) ensureNodePool(ctx *provisioning.Context, subnets []string) (string, error) {
	req := cloud.NodePoolRequest{
		Name:           ctx.Spec.ClusterName + "-workers",
		Min:            ctx.Spec.Nodes.Min,
		Desired:        ctx.Spec.Nodes.Desired,
		Max:            ctx.Spec.Nodes.Max,
		InstanceShapes: ctx.Spec.Nodes.InstanceShapes,
		SubnetIDs:      subnets,
	}

	var poolID string
	err := retry.WithExponentialBackoff(ctx, func() error {
		var err error
		poolID, err = ctx.Cloud.Compute().EnsureNodePool(ctx, ctx.Spec.ClusterName, req)
		return err
	})
	if err != nil {
		return "", &provisioning.ComputeError{Reason: "failed to ensure node pool", Err: err}
	}
	return poolID, nil
}

func bootstrapCommand(s *spec.Spec) string {
	return fmt.Sprintf("aws eks update-kubeconfig --region %s --name %s", s.Region, s.ClusterName)
}
