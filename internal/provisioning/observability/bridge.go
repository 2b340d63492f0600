// Package observability provisions the log sink and installs the telemetry
// collector that forwards cluster metrics and traces to the configured
// backends.
package observability

import (
	"fmt"

	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/spec"
	"github.com/cloudplane/cloudplane/internal/util/retry"
)

const stage = "observability"

// Collector chart coordinates. The chart ships an OpenTelemetry collector
// configured through values.
const (
	collectorRepoURL = "https://open-telemetry.github.io/opentelemetry-helm-charts"
	collectorChart   = "opentelemetry-collector"
	collectorVersion = "0.108.1"
	collectorRelease = "cloudplane-collector"

	otlpGRPCPort = 4317
	otlpHTTPPort = 4318
)

// Provisioner applies the observability graph node.
type Provisioner struct {
	// Installer installs the collector chart. Nil skips the collector and
	// provisions the log sink only.
	Installer HelmInstaller
}

// NewProvisioner creates the observability stage.
func NewProvisioner(installer HelmInstaller) *Provisioner {
	return &Provisioner{Installer: installer}
}

// Name implements provisioning.Stage.
func (p *Provisioner) Name() string {
	return stage
}

// Provision implements provisioning.Stage.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	hash, err := ctx.DesiredHash(provisioning.NodeObservability)
	if err != nil {
		return err
	}

	err = provisioning.ApplyNode(ctx, stage, provisioning.NodeObservability, hash, func() (map[string]string, error) {
		groupName := fmt.Sprintf("/cloudplane/%s", ctx.Spec.ClusterName)

		var groupID string
		rerr := retry.WithExponentialBackoff(ctx, func() error {
			var err error
			groupID, err = ctx.Cloud.Logs().EnsureLogGroup(ctx, groupName, ctx.Spec.Observability.LogRetentionDays)
			return err
		})
		if rerr != nil {
			return nil, fmt.Errorf("failed to ensure log group: %w", rerr)
		}

		outputs := map[string]string{provisioning.OutLogGroupID: groupID}

		if p.Installer != nil {
			values := collectorValues(ctx.Spec, groupID)
			if err := p.Installer.InstallOrUpgrade(ctx, collectorRelease, collectorRepoURL, collectorChart, collectorVersion, values); err != nil {
				return nil, fmt.Errorf("failed to install telemetry collector: %w", err)
			}
			outputs[provisioning.OutCollectorRelease] = collectorRelease
		}

		return outputs, nil
	})
	if err != nil {
		return err
	}

	ctx.State.LogGroupID = ctx.Graph.Node(provisioning.NodeObservability).Outputs[provisioning.OutLogGroupID]
	return nil
}

// collectorValues renders the chart values: OTLP intake on the standard
// ports, logs to the provisioned sink, metrics and traces to the configured
// backends.
func collectorValues(s *spec.Spec, logGroupID string) map[string]any {
	exporters := map[string]any{
		"awscloudwatchlogs": map[string]any{
			"log_group_name":  logGroupID,
			"log_stream_name": s.ClusterName,
			"region":          s.Region,
		},
	}
	logExporters := []string{"awscloudwatchlogs"}

	metricExporters := []string{}
	if s.Observability.MetricsBackend != "" {
		exporters["otlphttp/metrics"] = map[string]any{"endpoint": s.Observability.MetricsBackend}
		metricExporters = append(metricExporters, "otlphttp/metrics")
	}

	traceExporters := []string{}
	if s.Observability.TraceBackend != "" {
		exporters["otlphttp/traces"] = map[string]any{"endpoint": s.Observability.TraceBackend}
		traceExporters = append(traceExporters, "otlphttp/traces")
	}

	return map[string]any{
		"mode": "deployment",
		"config": map[string]any{
			"receivers": map[string]any{
				"otlp": map[string]any{
					"protocols": map[string]any{
						"grpc": map[string]any{"endpoint": fmt.Sprintf("0.0.0.0:%d", otlpGRPCPort)},
						"http": map[string]any{"endpoint": fmt.Sprintf("0.0.0.0:%d", otlpHTTPPort)},
					},
				},
			},
			"exporters": exporters,
			"service": map[string]any{
				"pipelines": map[string]any{
					"logs":    map[string]any{"receivers": []string{"otlp"}, "exporters": logExporters},
					"metrics": map[string]any{"receivers": []string{"otlp"}, "exporters": metricExporters},
					"traces":  map[string]any{"receivers": []string{"otlp"}, "exporters": traceExporters},
				},
			},
		},
	}
}
