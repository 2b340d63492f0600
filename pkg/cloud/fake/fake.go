// Package fake provides an in-memory cloud.Provider for tests. It records
// every ensure call, hands out deterministic resource ids, and lets tests
// inject failures and control-plane status sequences.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/topology"
	"github.com/cloudplane/cloudplane/pkg/cloud"
)

// Provider is an in-memory cloud.Provider.
type Provider struct {
	mu sync.Mutex

	// Failures maps an operation name (e.g. "EnsureRelationalStore") to
	// the error that operation should return.
	Failures map[string]error

	// StatusSequence is consumed by ControlPlaneStatus one element per
	// call; once exhausted the status stays at cloud.StatusActive.
	StatusSequence []string

	// Recorded state.
	Networks      map[string]string                      // name -> id
	Subnets       map[string]topology.SubnetAllocation   // id -> allocation
	Policies      map[access.Role]string                 // role -> id
	Rules         []access.Rule                          // last applied rule set
	ControlPlanes map[string]*cloud.ControlPlane         // name -> control plane
	NodePools     map[string]cloud.NodePoolRequest       // id -> request
	Relational    map[string]cloud.RelationalRequest     // name -> request
	Caches        map[string]cloud.CacheRequest          // name -> request
	LoadBalancers map[string]*cloud.LoadBalancer         // name -> lb
	LogGroups     map[string]int                         // name -> retention days

	// Calls counts invocations per operation name.
	Calls map[string]int

	seq int
}

// NewProvider returns an empty fake provider.
func NewProvider() *Provider {
	return &Provider{
		Failures:      make(map[string]error),
		Networks:      make(map[string]string),
		Subnets:       make(map[string]topology.SubnetAllocation),
		Policies:      make(map[access.Role]string),
		ControlPlanes: make(map[string]*cloud.ControlPlane),
		NodePools:     make(map[string]cloud.NodePoolRequest),
		Relational:    make(map[string]cloud.RelationalRequest),
		Caches:        make(map[string]cloud.CacheRequest),
		LoadBalancers: make(map[string]*cloud.LoadBalancer),
		LogGroups:     make(map[string]int),
		Calls:         make(map[string]int),
	}
}

// FailOn makes the named operation return err.
func (p *Provider) FailOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Failures[op] = err
}

func (p *Provider) begin(op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls[op]++
	if err := p.Failures[op]; err != nil {
		return err
	}
	return nil
}

func (p *Provider) nextID(prefix string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return fmt.Sprintf("%s-%04d", prefix, p.seq)
}

// Network implements cloud.Provider.
func (p *Provider) Network() cloud.NetworkService { return (*networkService)(p) }

// Compute implements cloud.Provider.
func (p *Provider) Compute() cloud.ComputeService { return (*computeService)(p) }

// Datastore implements cloud.Provider.
func (p *Provider) Datastore() cloud.DatastoreService { return (*datastoreService)(p) }

// Ingress implements cloud.Provider.
func (p *Provider) Ingress() cloud.IngressService { return (*ingressService)(p) }

// Logs implements cloud.Provider.
func (p *Provider) Logs() cloud.LogService { return (*logService)(p) }

// Teardown implements cloud.Provider.
func (p *Provider) Teardown() cloud.TeardownService { return (*teardownService)(p) }

type networkService Provider

func (s *networkService) EnsureNetwork(_ context.Context, name, _ string) (string, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureNetwork"); err != nil {
		return "", err
	}
	p.mu.Lock()
	if id, ok := p.Networks[name]; ok {
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()
	id := p.nextID("net")
	p.mu.Lock()
	p.Networks[name] = id
	p.mu.Unlock()
	return id, nil
}

func (s *networkService) EnsureSubnet(_ context.Context, _ string, alloc topology.SubnetAllocation) (string, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureSubnet"); err != nil {
		return "", err
	}
	p.mu.Lock()
	for id, existing := range p.Subnets {
		if existing.Tier == alloc.Tier && existing.Zone == alloc.Zone {
			p.mu.Unlock()
			return id, nil
		}
	}
	p.mu.Unlock()
	id := p.nextID("subnet")
	p.mu.Lock()
	p.Subnets[id] = alloc
	p.mu.Unlock()
	return id, nil
}

func (s *networkService) EnsureAccessPolicies(_ context.Context, _, _ string, rules []access.Rule) (map[access.Role]string, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureAccessPolicies"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.Rules = rules
	p.mu.Unlock()
	roles := map[access.Role]bool{}
	for _, r := range rules {
		roles[r.To] = true
		roles[r.From] = true
	}
	out := make(map[access.Role]string)
	for role := range roles {
		if role == access.RoleInternet {
			continue
		}
		p.mu.Lock()
		id, ok := p.Policies[role]
		p.mu.Unlock()
		if !ok {
			id = p.nextID("sg")
			p.mu.Lock()
			p.Policies[role] = id
			p.mu.Unlock()
		}
		out[role] = id
	}
	return out, nil
}

type computeService Provider

func (s *computeService) EnsureControlPlane(_ context.Context, name, version string, _ []string) (*cloud.ControlPlane, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureControlPlane"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cp, ok := p.ControlPlanes[name]; ok {
		return cp, nil
	}
	cp := &cloud.ControlPlane{
		Name:     name,
		Endpoint: fmt.Sprintf("https://%s.cp.fake.cloudplane.dev", name),
		CACert:   "ZmFrZS1jYS1idW5kbGU=",
		Status:   cloud.StatusCreating,
		// version recorded implicitly via the request; the fake does
		// not model upgrades.
	}
	_ = version
	p.ControlPlanes[name] = cp
	return cp, nil
}

func (s *computeService) ControlPlaneStatus(_ context.Context, name string) (string, error) {
	p := (*Provider)(s)
	if err := p.begin("ControlPlaneStatus"); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.StatusSequence) > 0 {
		status := p.StatusSequence[0]
		p.StatusSequence = p.StatusSequence[1:]
		if cp, ok := p.ControlPlanes[name]; ok {
			cp.Status = status
		}
		return status, nil
	}
	if cp, ok := p.ControlPlanes[name]; ok {
		cp.Status = cloud.StatusActive
	}
	return cloud.StatusActive, nil
}

func (s *computeService) EnsureNodePool(_ context.Context, clusterName string, req cloud.NodePoolRequest) (string, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureNodePool"); err != nil {
		return "", err
	}
	id := p.nextID("pool")
	p.mu.Lock()
	p.NodePools[id] = req
	p.mu.Unlock()
	_ = clusterName
	return id, nil
}

type datastoreService Provider

func (s *datastoreService) EnsureRelationalStore(_ context.Context, req cloud.RelationalRequest) (cloud.Endpoint, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureRelationalStore"); err != nil {
		return cloud.Endpoint{}, err
	}
	p.mu.Lock()
	p.Relational[req.Name] = req
	p.mu.Unlock()
	return cloud.Endpoint{Host: req.Name + ".db.fake.cloudplane.dev", Port: access.PortDatabase}, nil
}

func (s *datastoreService) EnsureCacheStore(_ context.Context, req cloud.CacheRequest) (cloud.CacheEndpoints, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureCacheStore"); err != nil {
		return cloud.CacheEndpoints{}, err
	}
	p.mu.Lock()
	p.Caches[req.Name] = req
	p.mu.Unlock()
	return cloud.CacheEndpoints{
		Primary:       cloud.Endpoint{Host: req.Name + ".cache.fake.cloudplane.dev", Port: access.PortCache},
		Configuration: cloud.Endpoint{Host: req.Name + ".cfg.cache.fake.cloudplane.dev", Port: access.PortCache},
	}, nil
}

type ingressService Provider

func (s *ingressService) EnsureLoadBalancer(_ context.Context, name string, _ []string, _ string) (*cloud.LoadBalancer, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureLoadBalancer"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if lb, ok := p.LoadBalancers[name]; ok {
		return lb, nil
	}
	lb := &cloud.LoadBalancer{
		ID:       fmt.Sprintf("lb-%s", name),
		Hostname: fmt.Sprintf("%s.lb.fake.cloudplane.dev", name),
	}
	p.LoadBalancers[name] = lb
	return lb, nil
}

type logService Provider

func (s *logService) EnsureLogGroup(_ context.Context, name string, retentionDays int) (string, error) {
	p := (*Provider)(s)
	if err := p.begin("EnsureLogGroup"); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.LogGroups[name] = retentionDays
	p.mu.Unlock()
	return "log-group/" + name, nil
}
