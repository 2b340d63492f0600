package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSpec = `
cluster_name: demo
region: us-east-1
zones: [us-east-1a, us-east-1b]
nodes:
  desired: 3
  instance_shapes: [m6i.large]
database:
  engine_version: "16.4"
  instance_class: db.m6g.large
  storage_gb: 50
  encryption_key_ref: alias/demo
cache:
  engine_version: "7.1"
  node_type: cache.m6g.large
  encryption_key_ref: alias/demo
ingress:
  hostname: app.example.com
  contact_email: ops@example.com
`

func TestParseAppliesDefaults(t *testing.T) {
	t.Parallel()

	s, err := Parse([]byte(minimalSpec))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.0/16", s.AddressBlock)
	assert.Equal(t, 1, s.Nodes.Min)
	assert.Equal(t, 3, s.Nodes.Desired)
	assert.Equal(t, 3, s.Nodes.Max, "max defaults to desired")
	assert.Equal(t, 7, s.Database.BackupRetentionDays)
	assert.Equal(t, "app", s.Database.DatabaseName)
	assert.Equal(t, 2, s.Cache.ClusterCount)
	assert.Equal(t, 30, s.Observability.LogRetentionDays)
	assert.Equal(t, "file", s.State.Backend)
	assert.Equal(t, ".cloudplane", s.State.Path)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(minimalSpec + "\nregon: typo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestParseRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("cluster_name: demo\n"))
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
}

func TestHashIsStable(t *testing.T) {
	t.Parallel()

	a := Hash(NodeSpec{Min: 1, Desired: 2, Max: 3})
	b := Hash(NodeSpec{Min: 1, Desired: 2, Max: 3})
	c := Hash(NodeSpec{Min: 1, Desired: 2, Max: 4})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
