package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/cloudplane/cloudplane/pkg/cloud"
)

type datastoreService struct {
	p *Provider
}

// EnsureRelationalStore implements cloud.DatastoreService.
func (s *datastoreService) EnsureRelationalStore(ctx context.Context, req cloud.RelationalRequest) (cloud.Endpoint, error) {
	if err := s.ensureDBSubnetGroup(ctx, req.Name, req.SubnetIDs); err != nil {
		return cloud.Endpoint{}, err
	}

	out, err := s.p.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(req.Name),
	})
	if err == nil && len(out.DBInstances) > 0 {
		return endpointFromInstance(out.DBInstances[0].Endpoint.Address, out.DBInstances[0].Endpoint.Port), nil
	}
	if err != nil && !isNotFound(err) {
		return cloud.Endpoint{}, fmt.Errorf("failed to describe DB instance %s: %w", req.Name, err)
	}

	created, err := s.p.rds.CreateDBInstance(ctx, &rds.CreateDBInstanceInput{
		DBInstanceIdentifier: aws.String(req.Name),
		Engine:               aws.String("postgres"),
		EngineVersion:        aws.String(req.EngineVersion),
		DBInstanceClass:      aws.String(req.InstanceClass),
		DBName:               aws.String(req.DatabaseName),
		// #nosec G115
		AllocatedStorage: aws.Int32(int32(req.StorageGB)),
		MultiAZ:          aws.Bool(req.MultiZoneFailover),
		StorageEncrypted: aws.Bool(true),
		KmsKeyId:         aws.String(req.EncryptionKeyRef),
		// #nosec G115
		BackupRetentionPeriod: aws.Int32(int32(req.BackupRetentionDays)),
		PreferredBackupWindow: aws.String(req.BackupWindow),
		DBSubnetGroupName:     aws.String(req.Name),
		VpcSecurityGroupIds:   []string{req.SecurityGroupID},
	})
	if err != nil {
		return cloud.Endpoint{}, fmt.Errorf("failed to create DB instance %s: %w", req.Name, err)
	}

	instance := created.DBInstance
	if instance.Endpoint == nil {
		// The endpoint is assigned asynchronously; callers poll until the
		// instance is available, but the identifier-based hostname shape
		// is stable.
		return cloud.Endpoint{Host: req.Name, Port: 5432}, nil
	}
	return endpointFromInstance(instance.Endpoint.Address, instance.Endpoint.Port), nil
}

// EnsureCacheStore implements cloud.DatastoreService.
func (s *datastoreService) EnsureCacheStore(ctx context.Context, req cloud.CacheRequest) (cloud.CacheEndpoints, error) {
	if err := s.ensureCacheSubnetGroup(ctx, req.Name, req.SubnetIDs); err != nil {
		return cloud.CacheEndpoints{}, err
	}

	out, err := s.p.ecach.DescribeReplicationGroups(ctx, &elasticache.DescribeReplicationGroupsInput{
		ReplicationGroupId: aws.String(req.Name),
	})
	if err == nil && len(out.ReplicationGroups) > 0 {
		return cacheEndpointsFromGroup(out.ReplicationGroups[0]), nil
	}
	if err != nil && !isNotFound(err) {
		return cloud.CacheEndpoints{}, fmt.Errorf("failed to describe replication group %s: %w", req.Name, err)
	}

	created, err := s.p.ecach.CreateReplicationGroup(ctx, &elasticache.CreateReplicationGroupInput{
		ReplicationGroupId:          aws.String(req.Name),
		ReplicationGroupDescription: aws.String("cloudplane managed cache"),
		Engine:                      aws.String("redis"),
		EngineVersion:               aws.String(req.EngineVersion),
		CacheNodeType:               aws.String(req.NodeType),
		// #nosec G115
		NumCacheClusters:         aws.Int32(int32(req.ClusterCount)),
		AutomaticFailoverEnabled: aws.Bool(req.MultiZoneFailover),
		MultiAZEnabled:           aws.Bool(req.MultiZoneFailover),
		AtRestEncryptionEnabled:  aws.Bool(true),
		TransitEncryptionEnabled: aws.Bool(true),
		KmsKeyId:                 aws.String(req.EncryptionKeyRef),
		// #nosec G115
		SnapshotRetentionLimit: aws.Int32(int32(req.SnapshotRetentionDays)),
		SnapshotWindow:         aws.String(req.SnapshotWindow),
		CacheSubnetGroupName:   aws.String(req.Name),
		SecurityGroupIds:       []string{req.SecurityGroupID},
	})
	if err != nil {
		return cloud.CacheEndpoints{}, fmt.Errorf("failed to create replication group %s: %w", req.Name, err)
	}
	return cacheEndpointsFromGroup(*created.ReplicationGroup), nil
}

func (s *datastoreService) ensureDBSubnetGroup(ctx context.Context, name string, subnetIDs []string) error {
	_, err := s.p.rds.DescribeDBSubnetGroups(ctx, &rds.DescribeDBSubnetGroupsInput{
		DBSubnetGroupName: aws.String(name),
	})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to describe DB subnet group %s: %w", name, err)
	}

	_, err = s.p.rds.CreateDBSubnetGroup(ctx, &rds.CreateDBSubnetGroupInput{
		DBSubnetGroupName:        aws.String(name),
		DBSubnetGroupDescription: aws.String("cloudplane database tier"),
		SubnetIds:                subnetIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to create DB subnet group %s: %w", name, err)
	}
	return nil
}

func (s *datastoreService) ensureCacheSubnetGroup(ctx context.Context, name string, subnetIDs []string) error {
	_, err := s.p.ecach.DescribeCacheSubnetGroups(ctx, &elasticache.DescribeCacheSubnetGroupsInput{
		CacheSubnetGroupName: aws.String(name),
	})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to describe cache subnet group %s: %w", name, err)
	}

	_, err = s.p.ecach.CreateCacheSubnetGroup(ctx, &elasticache.CreateCacheSubnetGroupInput{
		CacheSubnetGroupName:        aws.String(name),
		CacheSubnetGroupDescription: aws.String("cloudplane cache tier"),
		SubnetIds:                   subnetIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to create cache subnet group %s: %w", name, err)
	}
	return nil
}

func endpointFromInstance(addr *string, port *int32) cloud.Endpoint {
	return cloud.Endpoint{Host: aws.ToString(addr), Port: int(aws.ToInt32(port))}
}
