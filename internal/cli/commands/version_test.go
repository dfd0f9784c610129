package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut string
	}{
		{"default version", "0.1.0", "LeapTable v0.1.0"},
		{"dev version", "dev", "LeapTable vdev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			require.NoError(t, cmd.Execute())
			assert.Contains(t, buf.String(), tt.wantOut)
		})
	}
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name  string
		use   string
		flags []string
	}{
		{"serve", "serve", nil},
		{"preview", "preview <table>", []string{"search", "filter", "order", "start", "length", "output"}},
		{"export", "export <table>", []string{"search", "filter", "order", "format", "out"}},
		{"tables", "tables", []string{"output"}},
		{"targets", "targets", []string{"output"}},
		{"load", "load <target> <table> <file.csv>", nil},
	}

	ctors := map[string]func() *cobra.Command{
		"serve":   NewServeCommand,
		"preview": NewPreviewCommand,
		"export":  NewExportCommand,
		"tables":  NewTablesCommand,
		"targets": NewTargetsCommand,
		"load":    NewLoadCommand,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := ctors[tt.name]()
			assert.Equal(t, tt.use, cmd.Use)
			assert.NotEmpty(t, cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}

	assert.Nil(t, NewExportCommand().Flags().Lookup("start"), "exports are never windowed")
}
