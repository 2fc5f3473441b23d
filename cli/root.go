// Package cli wires the cobra command tree the ingestion engine ships as a
// binary: ingest for single-document and batch runs, rollback for tearing a
// partially-written document back out by hand.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhanii/corolaria-sub000/common"
)

// cfgFile holds the path to the configuration file given via --config. When
// empty, initConfig searches $HOME and the current directory for
// .corolaria-ingest.yaml.
var cfgFile string

var log = common.NewContextLogger(common.Logger, map[string]interface{}{"service": "corolaria-ingest"})

// RootCmd is the entry point main.go executes.
var RootCmd = &cobra.Command{
	Use:   "corolaria-ingest",
	Short: "Ingests BOE and EUR-Lex legal documents into a Neo4j graph",
	Long: `corolaria-ingest retrieves Spanish (BOE) and European (EUR-Lex)
legal documents, parses their hierarchical structure, embeds their articles,
and persists the result to a Neo4j graph with cross-document reference
links.

Configuration can be provided via command-line flags, environment
variables, or a .corolaria-ingest.yaml file, in that order of precedence.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.corolaria-ingest.yaml)")

	RootCmd.PersistentFlags().String("neo4j-uri", "", "Neo4j connection URI (e.g. neo4j://localhost:7687)")
	RootCmd.PersistentFlags().String("neo4j-user", "", "Neo4j username")
	RootCmd.PersistentFlags().String("neo4j-password", "", "Neo4j password")
	RootCmd.PersistentFlags().Int("neo4j-max-connections", 0, "Neo4j connection pool size")

	RootCmd.PersistentFlags().String("embedding-provider", "", "embedding provider: simulated or openai")
	RootCmd.PersistentFlags().String("embedding-model", "", "embedding model name")
	RootCmd.PersistentFlags().String("embedding-api-key", "", "embedding provider API key")
	RootCmd.PersistentFlags().Int("embedding-dims", 0, "embedding vector dimensionality")
	RootCmd.PersistentFlags().Int("embedding-batch-size", 0, "texts per embedding request")
	RootCmd.PersistentFlags().String("embedding-cache-path", "", "bbolt file backing the embedding cache")

	RootCmd.PersistentFlags().String("vector-index-name", "", "Neo4j vector index name")
	RootCmd.PersistentFlags().String("vector-index-property", "", "node property holding the embedding")
	RootCmd.PersistentFlags().String("vector-index-metric", "", "cosine or euclidean")

	RootCmd.PersistentFlags().Int("rate-limit-rpm", 0, "embedding requests allowed per minute")

	RootCmd.PersistentFlags().String("known-laws-override", "", "YAML file of known-law abbreviation overrides")
	RootCmd.PersistentFlags().String("unresolved-log", "", "path to write unresolved reference records")

	RootCmd.PersistentFlags().String("archive-endpoint-url", "", "S3-compatible endpoint for the document archive")
	RootCmd.PersistentFlags().String("archive-access-key", "", "archive access key")
	RootCmd.PersistentFlags().String("archive-secret-key", "", "archive secret key")
	RootCmd.PersistentFlags().String("archive-region", "", "archive region")
	RootCmd.PersistentFlags().String("archive-bucket", "", "archive bucket; empty disables the archive source")

	RootCmd.PersistentFlags().String("otel-endpoint", "", "OTLP HTTP collector endpoint")
	RootCmd.PersistentFlags().Bool("no-tracing", false, "disable OpenTelemetry tracing")

	for _, name := range []string{
		"neo4j-uri", "neo4j-user", "neo4j-password", "neo4j-max-connections",
		"embedding-provider", "embedding-model", "embedding-api-key", "embedding-dims",
		"embedding-batch-size", "embedding-cache-path",
		"vector-index-name", "vector-index-property", "vector-index-metric",
		"rate-limit-rpm", "known-laws-override", "unresolved-log",
		"archive-endpoint-url", "archive-access-key", "archive-secret-key", "archive-region", "archive-bucket",
		"otel-endpoint", "no-tracing",
	} {
		if err := viper.BindPFlag(name, RootCmd.PersistentFlags().Lookup(name)); err != nil {
			log.WithError(err).Fatalf("bind flag %s", name)
		}
	}

	RootCmd.AddCommand(ingestCmd)
	RootCmd.AddCommand(rollbackCmd)
	RootCmd.AddCommand(extractCmd)
}

// initConfig reads the config file and environment variables, if set, using
// the same search path and precedence for every subcommand in this tree.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".corolaria-ingest")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
