// Command corolaria-ingest is the CLI entry point for the BOE/EUR-Lex
// ingestion engine: retrieve, parse, embed, persist, and link documents
// into a Neo4j graph.
package main

import (
	"os"

	"github.com/mhanii/corolaria-sub000/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
