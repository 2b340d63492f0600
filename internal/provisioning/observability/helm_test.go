package observability

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHelmClientConfiguresRegistryClient(t *testing.T) {
	t.Parallel()

	ca := base64.StdEncoding.EncodeToString([]byte("ca-bundle"))
	client, err := NewHelmClient("https://10.0.0.1:6443", ca, "token", "telemetry")
	require.NoError(t, err)

	// OCI chart references resolve through the action configuration's
	// registry client; install and upgrade inherit it from there.
	require.NotNil(t, client.actionConfig.RegistryClient)
}
