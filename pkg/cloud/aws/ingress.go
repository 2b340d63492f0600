package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/cloudplane/cloudplane/pkg/cloud"
)

type ingressService struct {
	p *Provider
}

// EnsureLoadBalancer implements cloud.IngressService.
func (s *ingressService) EnsureLoadBalancer(ctx context.Context, name string, subnetIDs []string, securityGroupID string) (*cloud.LoadBalancer, error) {
	out, err := s.p.elb.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
		Names: []string{name},
	})
	if err == nil && len(out.LoadBalancers) > 0 {
		return loadBalancerFromDescription(out.LoadBalancers[0]), nil
	}
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to describe load balancer %s: %w", name, err)
	}

	created, err := s.p.elb.CreateLoadBalancer(ctx, &elbv2.CreateLoadBalancerInput{
		Name:           aws.String(name),
		Subnets:        subnetIDs,
		SecurityGroups: []string{securityGroupID},
		Scheme:         elbv2types.LoadBalancerSchemeEnumInternetFacing,
		Type:           elbv2types.LoadBalancerTypeEnumApplication,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create load balancer %s: %w", name, err)
	}
	if len(created.LoadBalancers) == 0 {
		return nil, fmt.Errorf("load balancer %s was not returned by the create call", name)
	}
	return loadBalancerFromDescription(created.LoadBalancers[0]), nil
}

func loadBalancerFromDescription(lb elbv2types.LoadBalancer) *cloud.LoadBalancer {
	return &cloud.LoadBalancer{
		ID:       aws.ToString(lb.LoadBalancerArn),
		Hostname: aws.ToString(lb.DNSName),
	}
}
