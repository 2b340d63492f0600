// Package wizard implements the interactive spec builder behind
// `cloudplane init`.
package wizard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudplane/cloudplane/internal/spec"
)

// Result holds all the answers from the interactive wizard.
type Result struct {
	// Cluster identity
	ClusterName string
	Region      string
	Zones       []string

	// Address space
	AddressBlock string

	// Worker nodes
	NodeDesired    int
	InstanceShapes []string

	// Datastores
	DatabaseVersion  string
	DatabaseClass    string
	DatabaseStorage  int
	CacheVersion     string
	CacheNodeType    string
	EncryptionKeyRef string

	// Ingress
	Hostname     string
	ContactEmail string
}

// Run walks through the wizard groups. The context cancels the form on
// Ctrl+C.
func Run(ctx context.Context) (*spec.Spec, error) {
	result := &Result{}

	if err := runIdentityGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("cluster identity: %w", err)
	}
	if err := runTopologyGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	if err := runNodesGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("worker nodes: %w", err)
	}
	if err := runDatastoreGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("datastores: %w", err)
	}
	if err := runIngressGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("ingress: %w", err)
	}

	return result.toSpec(), nil
}

// toSpec converts the wizard answers into a spec; defaults fill the fields
// the wizard does not ask about.
func (r *Result) toSpec() *spec.Spec {
	s := &spec.Spec{
		ClusterName:  r.ClusterName,
		Region:       r.Region,
		AddressBlock: r.AddressBlock,
		Zones:        r.Zones,
		Nodes: spec.NodeSpec{
			Desired:        r.NodeDesired,
			InstanceShapes: r.InstanceShapes,
		},
		Database: spec.DatastoreSpec{
			EngineVersion:     r.DatabaseVersion,
			InstanceClass:     r.DatabaseClass,
			StorageGB:         r.DatabaseStorage,
			MultiZoneFailover: len(r.Zones) >= 2,
			EncryptionKeyRef:  r.EncryptionKeyRef,
		},
		Cache: spec.DatastoreSpec{
			EngineVersion:     r.CacheVersion,
			NodeType:          r.CacheNodeType,
			MultiZoneFailover: len(r.Zones) >= 2,
			EncryptionKeyRef:  r.EncryptionKeyRef,
		},
		Ingress: spec.IngressSpec{
			Hostname:     r.Hostname,
			ContactEmail: r.ContactEmail,
		},
	}
	s.ApplyDefaults()
	return s
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("must be a positive number")
	}
	return n, nil
}
