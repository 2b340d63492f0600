package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/cloudplane/cloudplane/pkg/cloud"
)

type computeService struct {
	p *Provider
}

// EnsureControlPlane implements cloud.ComputeService.
func (s *computeService) EnsureControlPlane(ctx context.Context, name, version string, subnetIDs []string) (*cloud.ControlPlane, error) {
	out, err := s.p.eks.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
	if err == nil {
		return controlPlaneFromCluster(out.Cluster), nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to describe cluster %s: %w", name, err)
	}

	input := &eks.CreateClusterInput{
		Name:    aws.String(name),
		RoleArn: aws.String(s.p.opts.ClusterRoleARN),
		ResourcesVpcConfig: &ekstypes.VpcConfigRequest{
			SubnetIds: subnetIDs,
		},
	}
	if version != "" {
		input.Version = aws.String(version)
	}

	created, err := s.p.eks.CreateCluster(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster %s: %w", name, err)
	}
	return controlPlaneFromCluster(created.Cluster), nil
}

// ControlPlaneStatus implements cloud.ComputeService.
func (s *computeService) ControlPlaneStatus(ctx context.Context, name string) (string, error) {
	out, err := s.p.eks.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to describe cluster %s: %w", name, err)
	}
	switch out.Cluster.Status {
	case ekstypes.ClusterStatusActive:
		return cloud.StatusActive, nil
	case ekstypes.ClusterStatusFailed:
		return cloud.StatusFailed, nil
	default:
		return cloud.StatusCreating, nil
	}
}

// EnsureNodePool implements cloud.ComputeService.
func (s *computeService) EnsureNodePool(ctx context.Context, clusterName string, req cloud.NodePoolRequest) (string, error) {
	out, err := s.p.eks.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(req.Name),
	})
	if err == nil {
		return aws.ToString(out.Nodegroup.NodegroupArn), nil
	}
	if !isNotFound(err) {
		return "", fmt.Errorf("failed to describe node group %s: %w", req.Name, err)
	}

	created, err := s.p.eks.CreateNodegroup(ctx, &eks.CreateNodegroupInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(req.Name),
		NodeRole:      aws.String(s.p.opts.NodeRoleARN),
		Subnets:       req.SubnetIDs,
		InstanceTypes: req.InstanceShapes,
		ScalingConfig: &ekstypes.NodegroupScalingConfig{
			// #nosec G115
			MinSize: aws.Int32(int32(req.Min)),
			// #nosec G115
			DesiredSize: aws.Int32(int32(req.Desired)),
			// #nosec G115
			MaxSize: aws.Int32(int32(req.Max)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create node group %s: %w", req.Name, err)
	}
	return aws.ToString(created.Nodegroup.NodegroupArn), nil
}

func controlPlaneFromCluster(c *ekstypes.Cluster) *cloud.ControlPlane {
	cp := &cloud.ControlPlane{
		Name:     aws.ToString(c.Name),
		Endpoint: aws.ToString(c.Endpoint),
		Status:   cloud.StatusCreating,
	}
	if c.CertificateAuthority != nil {
		cp.CACert = aws.ToString(c.CertificateAuthority.Data)
	}
	if c.Status == ekstypes.ClusterStatusActive {
		cp.Status = cloud.StatusActive
	}
	return cp
}
