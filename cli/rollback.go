package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhanii/corolaria-sub000/config"
	"github.com/mhanii/corolaria-sub000/internal/graph"
	"github.com/mhanii/corolaria-sub000/internal/ingestcontext"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Cascade-delete a document and everything it wrote, by law ID",
	RunE:  runRollback,
}

func init() {
	rollbackCmd.Flags().String("rollback", "", "law ID to roll back")
}

type rollbackResult struct {
	LawID        string `json:"law_id"`
	RolledBack   bool   `json:"rolled_back"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func runRollback(cmd *cobra.Command, args []string) error {
	lawID, _ := cmd.Flags().GetString("rollback")
	if lawID == "" {
		return fmt.Errorf("rollback requires --rollback <law-id>")
	}

	cfg := config.Load(viper.GetViper())
	if cfg.Neo4jURI == "" || cfg.Neo4jUser == "" {
		return fmt.Errorf("rollback requires neo4j-uri and neo4j-user")
	}

	ctx := context.Background()
	adapter, err := graph.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jMaxConnections)
	if err != nil {
		return fmt.Errorf("connect to graph: %w", err)
	}
	defer adapter.Close(ctx)

	ic := ingestcontext.NewStandalone(lawID, adapter)
	rollbackErr := ic.Rollback(ctx)

	result := rollbackResult{LawID: lawID, RolledBack: rollbackErr == nil}
	if rollbackErr != nil {
		result.ErrorMessage = rollbackErr.Error()
	}
	if err := writeJSONResult("", result); err != nil {
		return err
	}
	return rollbackErr
}
