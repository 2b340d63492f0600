// Package topology computes the network address plan for a cluster: one
// virtual network carved into per-tier, per-zone subnets with disjoint
// address ranges.
//
// Plan building is pure computation. No cloud calls happen here, which keeps
// the address math independently unit-testable.
package topology

import (
	"fmt"
	"net"
)

// Tier is a logical network segment with a distinct reachability policy.
type Tier string

// The four subnet tiers, in fixed allocation order. The tier index occupies
// the high bits of the subnet index, the zone index the low bits.
const (
	TierPublic   Tier = "public"
	TierCompute  Tier = "compute"
	TierDatabase Tier = "database"
	TierCache    Tier = "cache"
)

// Tiers lists all tiers in allocation order.
var Tiers = []Tier{TierPublic, TierCompute, TierDatabase, TierCache}

// maxZonesPerTier bounds the zone index bits. With four tiers and a /16
// root block split into /20 subnets there is room for exactly 4 zones.
const maxZonesPerTier = 4

// subnetBits is the mask extension applied to the root block: a /16 root
// yields /20 subnets, 16 slots in total.
const subnetBits = 4

// SubnetAllocation is one (tier, zone) subnet of the address plan.
type SubnetAllocation struct {
	Tier Tier   `json:"tier"`
	Zone string `json:"zone"`
	CIDR string `json:"cidr"`
}

// AddressPlan is the computed network layout: the root address block plus
// one subnet per (tier, zone) pair. All subnet ranges are pairwise disjoint.
type AddressPlan struct {
	AddressBlock string             `json:"address_block"`
	Zones        []string           `json:"zones"`
	Subnets      []SubnetAllocation `json:"subnets"`
}

// AddressSpaceError reports that the requested zone/tier layout does not fit
// into the configured address block. Recoverable by widening the block.
type AddressSpaceError struct {
	AddressBlock string
	Zones        int
	Available    int
}

// Error implements the error interface.
func (e *AddressSpaceError) Error() string {
	return fmt.Sprintf("address space exhausted: %d zones requested but %s supports at most %d zones per tier",
		e.Zones, e.AddressBlock, e.Available)
}

// BuildPlan computes the address plan for the given root block and zones.
//
// Each (tier, zone) pair receives one subnet at index
// tier_index*maxZonesPerTier + zone_index. The bound of 4 zones and 4 tiers
// follows from the chosen block size and is validated, not assumed.
func BuildPlan(addressBlock string, zones []string) (*AddressPlan, error) {
	if _, _, err := net.ParseCIDR(addressBlock); err != nil {
		return nil, fmt.Errorf("invalid address block: %w", err)
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("at least one availability zone is required")
	}
	if len(zones) > maxZonesPerTier {
		return nil, &AddressSpaceError{
			AddressBlock: addressBlock,
			Zones:        len(zones),
			Available:    maxZonesPerTier,
		}
	}

	plan := &AddressPlan{
		AddressBlock: addressBlock,
		Zones:        zones,
		Subnets:      make([]SubnetAllocation, 0, len(Tiers)*len(zones)),
	}

	for ti, tier := range Tiers {
		for zi, zone := range zones {
			cidr, err := Subnet(addressBlock, subnetBits, ti*maxZonesPerTier+zi)
			if err != nil {
				return nil, fmt.Errorf("failed to allocate %s/%s subnet: %w", tier, zone, err)
			}
			plan.Subnets = append(plan.Subnets, SubnetAllocation{Tier: tier, Zone: zone, CIDR: cidr})
		}
	}

	return plan, nil
}

// SubnetsForTier returns the plan's subnets belonging to one tier, in zone
// order.
func (p *AddressPlan) SubnetsForTier(tier Tier) []SubnetAllocation {
	var out []SubnetAllocation
	for _, s := range p.Subnets {
		if s.Tier == tier {
			out = append(out, s)
		}
	}
	return out
}

// Verify checks the plan invariant: every subnet range is disjoint from
// every other and every tier has exactly one subnet per zone.
func (p *AddressPlan) Verify() error {
	nets := make([]*net.IPNet, len(p.Subnets))
	for i, s := range p.Subnets {
		_, n, err := net.ParseCIDR(s.CIDR)
		if err != nil {
			return fmt.Errorf("subnet %s/%s has invalid CIDR %q: %w", s.Tier, s.Zone, s.CIDR, err)
		}
		nets[i] = n
	}

	for i := range nets {
		for j := i + 1; j < len(nets); j++ {
			if Overlap(nets[i], nets[j]) {
				return fmt.Errorf("subnets %s and %s overlap", p.Subnets[i].CIDR, p.Subnets[j].CIDR)
			}
		}
	}

	for _, tier := range Tiers {
		seen := make(map[string]bool)
		for _, s := range p.SubnetsForTier(tier) {
			if seen[s.Zone] {
				return fmt.Errorf("tier %s has more than one subnet in zone %s", tier, s.Zone)
			}
			seen[s.Zone] = true
		}
		if len(seen) != len(p.Zones) {
			return fmt.Errorf("tier %s covers %d zones, want %d", tier, len(seen), len(p.Zones))
		}
	}

	return nil
}
