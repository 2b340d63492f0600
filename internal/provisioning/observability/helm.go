package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/registry"
	"helm.sh/helm/v3/pkg/repo"
)

// HelmInstaller installs or upgrades a chart release in the cluster.
type HelmInstaller interface {
	InstallOrUpgrade(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]any) error
}

// HelmClient installs charts through the Helm action API against a control
// plane addressed directly by endpoint and CA, without a kubeconfig on disk.
type HelmClient struct {
	namespace    string
	actionConfig *action.Configuration
}

// NewHelmClient creates a Helm client for the given control plane.
func NewHelmClient(endpoint, caCert, token, namespace string) (*HelmClient, error) {
	actionConfig := new(action.Configuration)
	getter := newRESTClientGetter(endpoint, caCert, token, namespace)

	if err := actionConfig.Init(getter, namespace, "secret", func(format string, v ...interface{}) {}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	registryClient, err := registry.NewClient(
		registry.ClientOptDebug(false),
		registry.ClientOptWriter(io.Discard),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry client: %w", err)
	}
	actionConfig.RegistryClient = registryClient

	return &HelmClient{namespace: namespace, actionConfig: actionConfig}, nil
}

// InstallOrUpgrade implements HelmInstaller. It installs the chart or
// upgrades the release when one already exists.
func (c *HelmClient) InstallOrUpgrade(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]any) error {
	history := action.NewHistory(c.actionConfig)
	history.Max = 1
	if _, err := history.Run(releaseName); err != nil {
		return c.install(ctx, releaseName, repoURL, chartName, version, values)
	}
	return c.upgrade(ctx, releaseName, repoURL, chartName, version, values)
}

func (c *HelmClient) install(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]any) error {
	client := action.NewInstall(c.actionConfig)
	client.ReleaseName = releaseName
	client.Namespace = c.namespace
	client.CreateNamespace = true
	client.Version = version
	client.Wait = true
	client.Timeout = 10 * time.Minute

	ch, err := c.loadChart(repoURL, chartName, version)
	if err != nil {
		return fmt.Errorf("failed to load chart: %w", err)
	}

	_, err = client.RunWithContext(ctx, ch, values)
	return err
}

func (c *HelmClient) upgrade(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]any) error {
	client := action.NewUpgrade(c.actionConfig)
	client.Namespace = c.namespace
	client.Version = version
	client.Wait = true
	client.Timeout = 10 * time.Minute

	ch, err := c.loadChart(repoURL, chartName, version)
	if err != nil {
		return fmt.Errorf("failed to load chart: %w", err)
	}

	_, err = client.RunWithContext(ctx, releaseName, ch, values)
	return err
}

func (c *HelmClient) loadChart(repoURL, chartName, version string) (*chart.Chart, error) {
	settings := cli.New()

	chartPath, err := repo.FindChartInRepoURL(
		repoURL,
		chartName,
		version,
		"", "", "",
		getter.All(settings),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", chartName, repoURL, err)
	}
	defer func() {
		_ = os.Remove(chartPath)
	}()

	return loader.Load(chartPath)
}
