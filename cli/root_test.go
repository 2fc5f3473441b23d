package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range RootCmd.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["ingest"])
	assert.True(t, names["rollback"])
	assert.True(t, names["extract-archive"])
}

func TestRootCmdBindsPersistentFlags(t *testing.T) {
	for _, name := range []string{
		"neo4j-uri", "neo4j-user", "neo4j-password",
		"embedding-provider", "embedding-api-key",
		"archive-bucket", "otel-endpoint", "no-tracing",
	} {
		assert.NotNil(t, RootCmd.PersistentFlags().Lookup(name), "flag %s should be registered", name)
	}
}
