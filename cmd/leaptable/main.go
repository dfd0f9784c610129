// Package main provides the CLI for the LeapTable server.
package main

import (
	"os"

	"github.com/leapstack-labs/leaptable/internal/cli"

	// Register database adapters.
	_ "github.com/leapstack-labs/leaptable/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leaptable/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leaptable/pkg/adapters/sqlite"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
