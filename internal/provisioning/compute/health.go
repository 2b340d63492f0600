package compute

import (
	"context"
	"encoding/base64"
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/cloudplane/cloudplane/pkg/cloud"
)

// HealthChecker probes an active control plane before the stage declares it
// ready.
type HealthChecker interface {
	Ready(ctx context.Context, cp *cloud.ControlPlane) error
}

// APIServerHealth hits the API server's readiness endpoint using the
// certificate authority reported by the cloud.
type APIServerHealth struct{}

// Ready implements HealthChecker.
func (APIServerHealth) Ready(ctx context.Context, cp *cloud.ControlPlane) error {
	ca, err := base64.StdEncoding.DecodeString(cp.CACert)
	if err != nil {
		return fmt.Errorf("failed to decode control plane CA: %w", err)
	}

	cfg := &rest.Config{
		Host: cp.Endpoint,
		TLSClientConfig: rest.TLSClientConfig{
			CAData: ca,
		},
	}

	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to build API client: %w", err)
	}

	result := client.Discovery().RESTClient().Get().AbsPath("/readyz").Do(ctx)
	if err := result.Error(); err != nil {
		return fmt.Errorf("readiness endpoint not ready: %w", err)
	}

	return nil
}
