package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

type logService struct {
	p *Provider
}

// EnsureLogGroup implements cloud.LogService.
func (s *logService) EnsureLogGroup(ctx context.Context, name string, retentionDays int) (string, error) {
	out, err := s.p.logs.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe log groups: %w", err)
	}

	exists := false
	for _, g := range out.LogGroups {
		if aws.ToString(g.LogGroupName) == name {
			exists = true
			break
		}
	}

	if !exists {
		if _, err := s.p.logs.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
			LogGroupName: aws.String(name),
		}); err != nil {
			return "", fmt.Errorf("failed to create log group %s: %w", name, err)
		}
	}

	// Retention is applied unconditionally so retention changes in the
	// spec take effect on re-apply.
	if _, err := s.p.logs.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName: aws.String(name),
		// #nosec G115
		RetentionInDays: aws.Int32(int32(retentionDays)),
	}); err != nil {
		return "", fmt.Errorf("failed to set retention on log group %s: %w", name, err)
	}

	return name, nil
}
