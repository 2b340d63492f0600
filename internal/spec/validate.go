package spec

import (
	"fmt"
	"net"
	"net/mail"
	"regexp"
	"strings"
)

// clusterNameRegex validates cluster name format: DNS-safe, lowercase
// alphanumeric with interior hyphens.
var clusterNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

const maxClusterNameLength = 63

// ValidationError represents a single spec validation failure.
type ValidationError struct {
	Field   string // Spec field that failed validation
	Message string // Human-readable error message
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationErrors aggregates all validation failures of a spec so the
// operator can fix them in one pass.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (ves ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ves))
	for _, ve := range ves {
		msgs = append(msgs, ve.Error())
	}
	return fmt.Sprintf("spec validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// Validate checks the spec against the input contract. It returns a
// ValidationErrors aggregate listing every violation, or nil when the spec
// is well-formed. Nothing is provisioned for an invalid spec.
func (s *Spec) Validate() error {
	var errs ValidationErrors

	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// --- Identity ---

	if s.ClusterName == "" {
		add("cluster_name", "cluster name is required")
	} else {
		if len(s.ClusterName) > maxClusterNameLength {
			add("cluster_name", "must be at most %d characters, got %d", maxClusterNameLength, len(s.ClusterName))
		}
		if !clusterNameRegex.MatchString(s.ClusterName) {
			add("cluster_name", "must be DNS-safe: lowercase alphanumeric and hyphens")
		}
	}

	if s.Region == "" {
		add("region", "region is required (e.g., 'eu-central-1')")
	}

	if len(s.Zones) == 0 {
		add("zones", "at least one availability zone is required")
	}

	// --- Address block ---

	if ip, ipNet, err := net.ParseCIDR(s.AddressBlock); err != nil {
		add("address_block", "invalid CIDR: %v", err)
	} else if ip.To4() == nil {
		add("address_block", "only IPv4 address blocks are supported")
	} else if ones, _ := ipNet.Mask.Size(); ones > 16 {
		add("address_block", "prefix /%d is too small for the subnet plan, /16 or larger required", ones)
	}

	// --- Node bounds ---

	errs = append(errs, s.Nodes.validate()...)

	// --- Datastores ---

	errs = append(errs, s.Database.validate("database", KindRelational, len(s.Zones))...)
	errs = append(errs, s.Cache.validate("cache", KindCache, len(s.Zones))...)

	// --- Ingress / certificates ---

	if s.Ingress.Hostname == "" {
		add("ingress.hostname", "ingress hostname is required")
	}
	if s.Ingress.ContactEmail == "" {
		add("ingress.contact_email", "contact email for certificate issuance is required")
	} else if _, err := mail.ParseAddress(s.Ingress.ContactEmail); err != nil {
		add("ingress.contact_email", "invalid email address: %v", err)
	}

	// --- Observability ---

	if d := s.Observability.LogRetentionDays; d < 1 || d > 3653 {
		add("observability.log_retention_days", "must be between 1 and 3653, got %d", d)
	}

	// --- State backend ---

	switch s.State.Backend {
	case "file":
	case "s3":
		if s.State.Bucket == "" {
			add("state.bucket", "bucket is required for the s3 state backend")
		}
	default:
		add("state.backend", "unknown backend %q (valid: file, s3)", s.State.Backend)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (n NodeSpec) validate() ValidationErrors {
	var errs ValidationErrors

	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for field, v := range map[string]int{"nodes.min": n.Min, "nodes.desired": n.Desired, "nodes.max": n.Max} {
		if v < 1 || v > 100 {
			add(field, "must be between 1 and 100, got %d", v)
		}
	}
	if n.Min > n.Desired {
		add("nodes.desired", "desired (%d) must be at least min (%d)", n.Desired, n.Min)
	}
	if n.Desired > n.Max {
		add("nodes.max", "max (%d) must be at least desired (%d)", n.Max, n.Desired)
	}
	if len(n.InstanceShapes) == 0 {
		add("nodes.instance_shapes", "at least one instance shape is required")
	}

	return errs
}

func (d DatastoreSpec) validate(prefix, kind string, zones int) ValidationErrors {
	var errs ValidationErrors

	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: prefix + "." + field, Message: fmt.Sprintf(format, args...)})
	}

	// No unencrypted datastore may exist. This is validated here, before
	// any provisioning call is issued.
	if d.EncryptionKeyRef == "" {
		add("encryption_key_ref", "encryption key reference is required, unencrypted datastores are not permitted")
	}

	if d.EngineVersion == "" {
		add("engine_version", "engine version is required")
	}

	if d.MultiZoneFailover && zones < 2 {
		add("multi_zone_failover", "requires at least 2 availability zones, got %d", zones)
	}

	switch kind {
	case KindRelational:
		if d.InstanceClass == "" {
			add("instance_class", "instance class is required")
		}
		if d.StorageGB < 1 {
			add("storage_gb", "storage size must be at least 1 GB, got %d", d.StorageGB)
		}
	case KindCache:
		if d.NodeType == "" {
			add("node_type", "node type is required")
		}
		if d.ClusterCount < 2 {
			add("cluster_count", "at least 2 cache clusters are required for HA, got %d", d.ClusterCount)
		}
	}

	if d.BackupRetentionDays < 0 {
		add("backup_retention_days", "must be non-negative, got %d", d.BackupRetentionDays)
	}

	return errs
}
