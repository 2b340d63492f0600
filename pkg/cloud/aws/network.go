package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudplane/cloudplane/internal/access"
	"github.com/cloudplane/cloudplane/internal/topology"
)

type networkService struct {
	p *Provider
}

// EnsureNetwork implements cloud.NetworkService.
func (s *networkService) EnsureNetwork(ctx context.Context, name, cidr string) (string, error) {
	out, err := s.p.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{nameTagFilter(name)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe VPCs: %w", err)
	}
	if len(out.Vpcs) > 0 {
		return aws.ToString(out.Vpcs[0].VpcId), nil
	}

	created, err := s.p.ec2.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         aws.String(cidr),
		TagSpecifications: nameTags(ec2types.ResourceTypeVpc, name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create VPC %s: %w", name, err)
	}
	return aws.ToString(created.Vpc.VpcId), nil
}

// EnsureSubnet implements cloud.NetworkService.
func (s *networkService) EnsureSubnet(ctx context.Context, networkID string, alloc topology.SubnetAllocation) (string, error) {
	name := fmt.Sprintf("%s-%s", alloc.Tier, alloc.Zone)

	out, err := s.p.ec2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{networkID}},
			nameTagFilter(name),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe subnets: %w", err)
	}
	if len(out.Subnets) > 0 {
		return aws.ToString(out.Subnets[0].SubnetId), nil
	}

	created, err := s.p.ec2.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:             aws.String(networkID),
		CidrBlock:         aws.String(alloc.CIDR),
		AvailabilityZone:  aws.String(alloc.Zone),
		TagSpecifications: nameTags(ec2types.ResourceTypeSubnet, name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create subnet %s: %w", name, err)
	}
	return aws.ToString(created.Subnet.SubnetId), nil
}

// EnsureAccessPolicies implements cloud.NetworkService. Each role becomes a
// security group; each rule becomes an ingress permission whose source is
// the from-role's group, so reachability follows the access graph exactly.
func (s *networkService) EnsureAccessPolicies(ctx context.Context, networkID, name string, rules []access.Rule) (map[access.Role]string, error) {
	groups := make(map[access.Role]string)

	for _, role := range []access.Role{access.RoleIngress, access.RoleCompute, access.RoleDatabase, access.RoleCache} {
		id, err := s.ensureSecurityGroup(ctx, networkID, fmt.Sprintf("%s-%s", name, role))
		if err != nil {
			return nil, err
		}
		groups[role] = id
	}

	for _, rule := range rules {
		if err := s.authorizeRule(ctx, groups, rule); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

func (s *networkService) ensureSecurityGroup(ctx context.Context, networkID, name string) (string, error) {
	out, err := s.p.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{networkID}},
			{Name: aws.String("group-name"), Values: []string{name}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe security groups: %w", err)
	}
	if len(out.SecurityGroups) > 0 {
		return aws.ToString(out.SecurityGroups[0].GroupId), nil
	}

	created, err := s.p.ec2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		VpcId:             aws.String(networkID),
		GroupName:         aws.String(name),
		Description:       aws.String("cloudplane access boundary"),
		TagSpecifications: nameTags(ec2types.ResourceTypeSecurityGroup, name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create security group %s: %w", name, err)
	}
	return aws.ToString(created.GroupId), nil
}

func (s *networkService) authorizeRule(ctx context.Context, groups map[access.Role]string, rule access.Rule) error {
	target, ok := groups[rule.To]
	if !ok {
		return fmt.Errorf("no security group for role %s", rule.To)
	}

	perm := ec2types.IpPermission{
		IpProtocol: aws.String("tcp"),
	}
	if rule.Ports.All() {
		perm.IpProtocol = aws.String("-1")
	} else {
		// #nosec G115
		perm.FromPort = aws.Int32(int32(rule.Ports.From))
		// #nosec G115
		perm.ToPort = aws.Int32(int32(rule.Ports.To))
	}

	if rule.From == access.RoleInternet {
		perm.IpRanges = []ec2types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}}
	} else {
		source, ok := groups[rule.From]
		if !ok {
			return fmt.Errorf("no security group for role %s", rule.From)
		}
		perm.UserIdGroupPairs = []ec2types.UserIdGroupPair{{GroupId: aws.String(source)}}
	}

	_, err := s.p.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(target),
		IpPermissions: []ec2types.IpPermission{perm},
	})
	if err != nil && !isDuplicatePermission(err) {
		return fmt.Errorf("failed to authorize rule %s: %w", rule, err)
	}
	return nil
}

func nameTagFilter(name string) ec2types.Filter {
	return ec2types.Filter{Name: aws.String("tag:Name"), Values: []string{name}}
}

func nameTags(resource ec2types.ResourceType, name string) []ec2types.TagSpecification {
	return []ec2types.TagSpecification{{
		ResourceType: resource,
		Tags: []ec2types.Tag{
			{Key: aws.String("Name"), Value: aws.String(name)},
			{Key: aws.String("managed-by"), Value: aws.String("cloudplane")},
		},
	}}
}
