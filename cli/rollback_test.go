package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func newRollbackTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rollback", RunE: runRollback}
	cmd.Flags().String("rollback", "", "law ID to roll back")
	return cmd
}

func TestRunRollbackRequiresLawID(t *testing.T) {
	cmd := newRollbackTestCmd()
	err := cmd.RunE(cmd, nil)
	assert.ErrorContains(t, err, "--rollback")
}

func TestRunRollbackRequiresNeo4jConfig(t *testing.T) {
	cmd := newRollbackTestCmd()
	assert.NoError(t, cmd.Flags().Set("rollback", "BOE-A-2015-11430"))

	err := cmd.RunE(cmd, nil)
	assert.ErrorContains(t, err, "neo4j-uri")
}
