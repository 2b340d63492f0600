// Package access derives the security boundary rules between logical roles
// as a whitelist of may-connect edges.
//
// The builder starts from an empty rule set and only ever adds rules; any
// rule that would reach a data tier from outside the compute tier is
// rejected. That guard is enforced programmatically, not left to operator
// discipline.
package access

import (
	"fmt"
)

// Role is a logical endpoint class in the access graph.
type Role string

// The fixed catalog of roles.
const (
	RoleInternet Role = "internet"
	RoleIngress  Role = "ingress"
	RoleCompute  Role = "compute"
	RoleDatabase Role = "database"
	RoleCache    Role = "cache"
)

// Direction of traffic a rule permits.
type Direction string

// Rule directions.
const (
	DirectionIngress Direction = "in"
	DirectionEgress  Direction = "out"
)

// Well-known ports exposed by each to_role.
const (
	PortHTTPS    = 443
	PortDatabase = 5432
	PortCache    = 6379
)

// PortRange is an inclusive TCP port interval. From==0 && To==0 means all
// ports.
type PortRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// All matches every port.
func (pr PortRange) All() bool { return pr.From == 0 && pr.To == 0 }

// String implements fmt.Stringer.
func (pr PortRange) String() string {
	if pr.All() {
		return "*"
	}
	if pr.From == pr.To {
		return fmt.Sprintf("%d", pr.From)
	}
	return fmt.Sprintf("%d-%d", pr.From, pr.To)
}

// Rule is one directed may-connect edge of the access graph.
type Rule struct {
	From      Role      `json:"from_role"`
	To        Role      `json:"to_role"`
	Ports     PortRange `json:"port_range"`
	Direction Direction `json:"direction"`
}

// String implements fmt.Stringer.
func (r Rule) String() string {
	return fmt.Sprintf("%s->%s:%s", r.From, r.To, r.Ports)
}

// ViolationError reports an attempted rule that would breach the data-tier
// isolation invariant. It is fatal to that rule and never silently dropped.
type ViolationError struct {
	Rule Rule
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("access graph violation: rule %s would expose a data tier to %q, only %q may reach it",
		e.Rule, e.Rule.From, RoleCompute)
}

// Builder accumulates whitelist rules, rejecting any that breach the
// data-tier isolation invariant.
type Builder struct {
	rules []Rule
}

// NewBuilder returns a Builder with an empty rule set.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a rule after checking the isolation invariant: a rule whose
// to_role is a data tier (database or cache) must originate from compute.
func (b *Builder) Add(rule Rule) error {
	if isDataTier(rule.To) && rule.From != RoleCompute {
		return &ViolationError{Rule: rule}
	}
	b.rules = append(b.rules, rule)
	return nil
}

// Rules returns the accumulated whitelist.
func (b *Builder) Rules() []Rule {
	return b.rules
}

// BuildRules derives the standard least-privilege rule set:
// ingress→compute (443), compute→compute (all ports), compute→database,
// compute→cache.
func BuildRules() ([]Rule, error) {
	b := NewBuilder()

	standard := []Rule{
		{From: RoleIngress, To: RoleCompute, Ports: PortRange{From: PortHTTPS, To: PortHTTPS}, Direction: DirectionIngress},
		{From: RoleCompute, To: RoleCompute, Ports: PortRange{}, Direction: DirectionIngress},
		{From: RoleCompute, To: RoleDatabase, Ports: PortRange{From: PortDatabase, To: PortDatabase}, Direction: DirectionIngress},
		{From: RoleCompute, To: RoleCache, Ports: PortRange{From: PortCache, To: PortCache}, Direction: DirectionIngress},
	}

	for _, r := range standard {
		if err := b.Add(r); err != nil {
			return nil, err
		}
	}

	return b.Rules(), nil
}

func isDataTier(role Role) bool {
	return role == RoleDatabase || role == RoleCache
}
