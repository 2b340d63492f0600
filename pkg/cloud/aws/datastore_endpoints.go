package aws

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ecachtypes "github.com/aws/aws-sdk-go-v2/service/elasticache/types"

	"github.com/cloudplane/cloudplane/pkg/cloud"
)

func cacheEndpointsFromGroup(g ecachtypes.ReplicationGroup) cloud.CacheEndpoints {
	var eps cloud.CacheEndpoints

	if g.ConfigurationEndpoint != nil {
		eps.Configuration = cloud.Endpoint{
			Host: aws.ToString(g.ConfigurationEndpoint.Address),
			Port: int(aws.ToInt32(g.ConfigurationEndpoint.Port)),
		}
	}
	if len(g.NodeGroups) > 0 && g.NodeGroups[0].PrimaryEndpoint != nil {
		primary := g.NodeGroups[0].PrimaryEndpoint
		eps.Primary = cloud.Endpoint{
			Host: aws.ToString(primary.Address),
			Port: int(aws.ToInt32(primary.Port)),
		}
	}

	return eps
}
