package engine

import (
	"context"
	"encoding/base64"
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/provisioning/ingress"
)

// clusterPublisher resolves the cluster client lazily from the run state.
// The ingress stage runs after the compute level, so by the time a challenge
// is published the control plane is provisioned and ready.
type clusterPublisher struct {
	state    *provisioning.State
	hostname string
}

func (p *clusterPublisher) publisher() (ingress.ChallengePublisher, error) {
	cp := p.state.ControlPlane
	if cp == nil {
		return nil, fmt.Errorf("control plane is not provisioned")
	}
	ca, err := base64.StdEncoding.DecodeString(cp.CACert)
	if err != nil {
		return nil, fmt.Errorf("failed to decode control plane CA: %w", err)
	}
	client, err := kubernetes.NewForConfig(&rest.Config{
		Host:            cp.Endpoint,
		TLSClientConfig: rest.TLSClientConfig{CAData: ca},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build cluster client: %w", err)
	}
	return ingress.NewKubernetesPublisher(client, p.hostname), nil
}

// Publish implements ingress.ChallengePublisher.
func (p *clusterPublisher) Publish(ctx context.Context, token, keyAuth string) error {
	pub, err := p.publisher()
	if err != nil {
		return err
	}
	return pub.Publish(ctx, token, keyAuth)
}

// Unpublish implements ingress.ChallengePublisher.
func (p *clusterPublisher) Unpublish(ctx context.Context, token string) error {
	pub, err := p.publisher()
	if err != nil {
		return err
	}
	return pub.Unpublish(ctx, token)
}
