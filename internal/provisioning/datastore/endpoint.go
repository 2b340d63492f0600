package datastore

import (
	"fmt"
	"net"
	"strconv"

	"github.com/cloudplane/cloudplane/pkg/cloud"
)

// parseEndpoint splits a stored "host:port" graph output back into an
// endpoint.
func parseEndpoint(s string) (cloud.Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return cloud.Endpoint{}, fmt.Errorf("malformed endpoint %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cloud.Endpoint{}, fmt.Errorf("malformed endpoint port %q: %w", portStr, err)
	}
	return cloud.Endpoint{Host: host, Port: port}, nil
}
