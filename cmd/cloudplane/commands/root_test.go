package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "cloudplane", cmd.Use)
	assert.Equal(t, "Provision a declarative application platform on AWS", cmd.Short)
}

func TestRootHasSubcommands(t *testing.T) {
	cmd := Root()

	expected := []string{
		"init",
		"validate",
		"plan",
		"apply",
		"output",
		"destroy",
		"version",
		"completion",
	}

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %s", name)
	}
	assert.Len(t, cmd.Commands(), len(expected))
}
