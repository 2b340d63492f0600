package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// isDuplicatePermission checks whether an authorize call failed because the
// permission already exists.
func isDuplicatePermission(err error) bool {
	return hasErrorCode(err, "InvalidPermission.Duplicate")
}

// isNotFound checks common not-found API codes across the AWS services the
// provider talks to.
func isNotFound(err error) bool {
	return hasErrorCode(err,
		"ResourceNotFoundException",
		"DBInstanceNotFound",
		"DBSubnetGroupNotFoundFault",
		"ReplicationGroupNotFoundFault",
		"CacheSubnetGroupNotFoundFault",
		"LoadBalancerNotFound",
	)
}

func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	got := apiErr.ErrorCode()
	for _, code := range codes {
		if got == code {
			return true
		}
	}
	return false
}
