package wizard

import (
	"context"
	"fmt"
	"net"
	"net/mail"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
)

// clusterNameRegex validates the cluster name: lowercase alphanumeric with
// interior hyphens.
var clusterNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// regionZones offers zone choices per region.
var regionZones = map[string][]string{
	"us-east-1":    {"us-east-1a", "us-east-1b", "us-east-1c", "us-east-1d"},
	"us-west-2":    {"us-west-2a", "us-west-2b", "us-west-2c", "us-west-2d"},
	"eu-central-1": {"eu-central-1a", "eu-central-1b", "eu-central-1c"},
	"eu-west-1":    {"eu-west-1a", "eu-west-1b", "eu-west-1c"},
}

func runIdentityGroup(ctx context.Context, result *Result) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster Name").
				Description("Lowercase alphanumeric characters or hyphens").
				Placeholder("my-cluster").
				Value(&result.ClusterName).
				Validate(validateClusterName),
			huh.NewSelect[string]().
				Title("Region").
				Description("Cloud region to provision into").
				Options(regionOptions()...).
				Value(&result.Region),
		).Title("Cluster Identity"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Availability Zones").
				Description("Pick 1-4 zones; 2 or more enables multi-zone failover").
				Options(zoneOptions(result.Region)...).
				Validate(validateZones).
				Value(&result.Zones),
		).Title("Zones"),
	).RunWithContext(ctx)
}

func runTopologyGroup(ctx context.Context, result *Result) error {
	result.AddressBlock = "10.0.0.0/16"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Address Block").
				Description("IPv4 CIDR, /16 or larger").
				Placeholder("10.0.0.0/16").
				Value(&result.AddressBlock).
				Validate(validateCIDR),
		).Title("Network Topology"),
	).RunWithContext(ctx)
}

func runNodesGroup(ctx context.Context, result *Result) error {
	var desired string
	var shapes string

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Desired Worker Count").
				Placeholder("3").
				Value(&desired).
				Validate(func(s string) error {
					_, err := parsePositiveInt(s)
					return err
				}),
			huh.NewInput().
				Title("Instance Shapes").
				Description("Comma-separated, in preference order").
				Placeholder("m6i.large, m5.large").
				Value(&shapes).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("at least one instance shape is required")
					}
					return nil
				}),
		).Title("Worker Nodes"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.NodeDesired, _ = parsePositiveInt(desired)
	result.InstanceShapes = splitList(shapes)
	return nil
}

func runDatastoreGroup(ctx context.Context, result *Result) error {
	var storage string

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Database Engine Version").
				Placeholder("16.4").
				Value(&result.DatabaseVersion),
			huh.NewSelect[string]().
				Title("Database Instance Class").
				Options(
					huh.NewOption("db.t4g.medium (dev)", "db.t4g.medium"),
					huh.NewOption("db.m6g.large", "db.m6g.large"),
					huh.NewOption("db.m6g.xlarge", "db.m6g.xlarge"),
					huh.NewOption("db.r6g.large (memory-optimized)", "db.r6g.large"),
				).
				Value(&result.DatabaseClass),
			huh.NewInput().
				Title("Database Storage (GB)").
				Placeholder("100").
				Value(&storage).
				Validate(func(s string) error {
					_, err := parsePositiveInt(s)
					return err
				}),
			huh.NewInput().
				Title("Cache Engine Version").
				Placeholder("7.1").
				Value(&result.CacheVersion),
			huh.NewSelect[string]().
				Title("Cache Node Type").
				Options(
					huh.NewOption("cache.t4g.small (dev)", "cache.t4g.small"),
					huh.NewOption("cache.m6g.large", "cache.m6g.large"),
					huh.NewOption("cache.r6g.large (memory-optimized)", "cache.r6g.large"),
				).
				Value(&result.CacheNodeType),
			huh.NewInput().
				Title("Encryption Key Reference").
				Description("KMS key id or alias; at-rest encryption is mandatory").
				Placeholder("alias/cloudplane").
				Value(&result.EncryptionKeyRef).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("encryption key reference is required")
					}
					return nil
				}),
		).Title("Datastores"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.DatabaseStorage, _ = parsePositiveInt(storage)
	return nil
}

func runIngressGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Ingress Hostname").
				Placeholder("app.example.com").
				Value(&result.Hostname).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("hostname is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Certificate Contact Email").
				Placeholder("ops@example.com").
				Value(&result.ContactEmail).
				Validate(func(s string) error {
					_, err := mail.ParseAddress(s)
					if err != nil {
						return fmt.Errorf("must be a valid email address")
					}
					return nil
				}),
		).Title("Ingress"),
	).RunWithContext(ctx)
}

func validateClusterName(s string) error {
	if !clusterNameRegex.MatchString(s) {
		return fmt.Errorf("must be lowercase alphanumeric with hyphens")
	}
	return nil
}

func validateZones(zones []string) error {
	if len(zones) == 0 {
		return fmt.Errorf("pick at least one zone")
	}
	if len(zones) > 4 {
		return fmt.Errorf("at most 4 zones are supported")
	}
	return nil
}

func validateCIDR(s string) error {
	_, block, err := net.ParseCIDR(s)
	if err != nil {
		return fmt.Errorf("must be a valid CIDR")
	}
	if ones, bits := block.Mask.Size(); bits != 32 || ones > 16 {
		return fmt.Errorf("must be an IPv4 block of /16 or larger")
	}
	return nil
}

func regionOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("US East (N. Virginia)", "us-east-1"),
		huh.NewOption("US West (Oregon)", "us-west-2"),
		huh.NewOption("EU (Frankfurt)", "eu-central-1"),
		huh.NewOption("EU (Ireland)", "eu-west-1"),
	}
}

func zoneOptions(region string) []huh.Option[string] {
	zones := regionZones[region]
	opts := make([]huh.Option[string], 0, len(zones))
	for _, z := range zones {
		opts = append(opts, huh.NewOption(z, z))
	}
	return opts
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
