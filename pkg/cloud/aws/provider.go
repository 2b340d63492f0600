// Package aws implements cloud.Provider against AWS: EC2 networking, EKS
// compute, RDS and ElastiCache datastores, an application load balancer for
// ingress, and CloudWatch Logs as the log sink.
//
// All ensure methods are describe-first: the resource is looked up by name
// or tag and only created when missing, so re-applying is safe.
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/cloudplane/cloudplane/pkg/cloud"
)

// Options configures the AWS provider.
type Options struct {
	Region string

	// ClusterRoleARN is the IAM role assumed by the managed control plane.
	ClusterRoleARN string

	// NodeRoleARN is the IAM role assumed by worker nodes.
	NodeRoleARN string
}

// Provider implements cloud.Provider on AWS.
type Provider struct {
	ec2   *ec2.Client
	eks   *eks.Client
	rds   *rds.Client
	ecach *elasticache.Client
	elb   *elbv2.Client
	logs  *cloudwatchlogs.Client

	opts Options
}

// New creates an AWS provider using the default credential chain.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Provider{
		ec2:   ec2.NewFromConfig(cfg),
		eks:   eks.NewFromConfig(cfg),
		rds:   rds.NewFromConfig(cfg),
		ecach: elasticache.NewFromConfig(cfg),
		elb:   elbv2.NewFromConfig(cfg),
		logs:  cloudwatchlogs.NewFromConfig(cfg),
		opts:  opts,
	}, nil
}

// Network implements cloud.Provider.
func (p *Provider) Network() cloud.NetworkService { return &networkService{p} }

// Compute implements cloud.Provider.
func (p *Provider) Compute() cloud.ComputeService { return &computeService{p} }

// Datastore implements cloud.Provider.
func (p *Provider) Datastore() cloud.DatastoreService { return &datastoreService{p} }

// Ingress implements cloud.Provider.
func (p *Provider) Ingress() cloud.IngressService { return &ingressService{p} }

// Logs implements cloud.Provider.
func (p *Provider) Logs() cloud.LogService { return &logService{p} }

// Teardown implements cloud.Provider.
func (p *Provider) Teardown() cloud.TeardownService { return &teardownService{p} }
