package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leaptable/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
