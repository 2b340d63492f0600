package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

type teardownService struct {
	p *Provider
}

// DeleteLoadBalancer implements cloud.TeardownService.
func (s *teardownService) DeleteLoadBalancer(ctx context.Context, id string) error {
	_, err := s.p.elb.DeleteLoadBalancer(ctx, &elbv2.DeleteLoadBalancerInput{
		LoadBalancerArn: aws.String(id),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete load balancer %s: %w", id, err)
	}
	return nil
}

// DeleteNodePool implements cloud.TeardownService.
func (s *teardownService) DeleteNodePool(ctx context.Context, clusterName, poolID string) error {
	_, err := s.p.eks.DeleteNodegroup(ctx, &eks.DeleteNodegroupInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(poolID),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete node pool %s: %w", poolID, err)
	}
	return nil
}

// DeleteControlPlane implements cloud.TeardownService.
func (s *teardownService) DeleteControlPlane(ctx context.Context, name string) error {
	_, err := s.p.eks.DeleteCluster(ctx, &eks.DeleteClusterInput{Name: aws.String(name)})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete control plane %s: %w", name, err)
	}
	return nil
}

// DeleteRelationalStore implements cloud.TeardownService. A final snapshot
// is kept so an accidental destroy is recoverable.
func (s *teardownService) DeleteRelationalStore(ctx context.Context, name string) error {
	_, err := s.p.rds.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
		DBInstanceIdentifier:      aws.String(name),
		FinalDBSnapshotIdentifier: aws.String(name + "-final"),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete relational store %s: %w", name, err)
	}
	return nil
}

// DeleteCacheStore implements cloud.TeardownService.
func (s *teardownService) DeleteCacheStore(ctx context.Context, name string) error {
	_, err := s.p.ecach.DeleteReplicationGroup(ctx, &elasticache.DeleteReplicationGroupInput{
		ReplicationGroupId: aws.String(name),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete cache store %s: %w", name, err)
	}
	return nil
}

// DeleteLogGroup implements cloud.TeardownService.
func (s *teardownService) DeleteLogGroup(ctx context.Context, name string) error {
	_, err := s.p.logs.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{
		LogGroupName: aws.String(name),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete log group %s: %w", name, err)
	}
	return nil
}

// DeleteAccessPolicy implements cloud.TeardownService.
func (s *teardownService) DeleteAccessPolicy(ctx context.Context, id string) error {
	_, err := s.p.ec2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: aws.String(id),
	})
	if err != nil && !isNotFound(err) && !hasErrorCode(err, "InvalidGroup.NotFound") {
		return fmt.Errorf("failed to delete access policy %s: %w", id, err)
	}
	return nil
}

// DeleteSubnet implements cloud.TeardownService.
func (s *teardownService) DeleteSubnet(ctx context.Context, id string) error {
	_, err := s.p.ec2.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(id)})
	if err != nil && !hasErrorCode(err, "InvalidSubnetID.NotFound") {
		return fmt.Errorf("failed to delete subnet %s: %w", id, err)
	}
	return nil
}

// DeleteNetwork implements cloud.TeardownService.
func (s *teardownService) DeleteNetwork(ctx context.Context, id string) error {
	_, err := s.p.ec2.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: aws.String(id)})
	if err != nil && !hasErrorCode(err, "InvalidVpcID.NotFound") {
		return fmt.Errorf("failed to delete network %s: %w", id, err)
	}
	return nil
}
