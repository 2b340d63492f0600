package fake

import "context"

type teardownService Provider

func (s *teardownService) DeleteLoadBalancer(_ context.Context, id string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteLoadBalancer"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, lb := range p.LoadBalancers {
		if lb.ID == id {
			delete(p.LoadBalancers, name)
		}
	}
	return nil
}

func (s *teardownService) DeleteNodePool(_ context.Context, _, poolID string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteNodePool"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.NodePools, poolID)
	return nil
}

func (s *teardownService) DeleteControlPlane(_ context.Context, name string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteControlPlane"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ControlPlanes, name)
	return nil
}

func (s *teardownService) DeleteRelationalStore(_ context.Context, name string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteRelationalStore"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.Relational, name)
	return nil
}

func (s *teardownService) DeleteCacheStore(_ context.Context, name string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteCacheStore"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.Caches, name)
	return nil
}

func (s *teardownService) DeleteLogGroup(_ context.Context, name string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteLogGroup"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.LogGroups, name)
	return nil
}

func (s *teardownService) DeleteAccessPolicy(_ context.Context, id string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteAccessPolicy"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for role, existing := range p.Policies {
		if existing == id {
			delete(p.Policies, role)
		}
	}
	return nil
}

func (s *teardownService) DeleteSubnet(_ context.Context, id string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteSubnet"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.Subnets, id)
	return nil
}

func (s *teardownService) DeleteNetwork(_ context.Context, id string) error {
	p := (*Provider)(s)
	if err := p.begin("DeleteNetwork"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, existing := range p.Networks {
		if existing == id {
			delete(p.Networks, name)
		}
	}
	return nil
}
