// Package cli holds the cpsim commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the cpsim command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "cpsim",
		Short: "W3CP charge point firmware and simulator",
		Long: `cpsim runs a W3CP charge point: it keeps a verified connection to
its backend, reports status and serves the simulator API.

Configuration comes from W3CP_ prefixed environment variables and an
optional .env file.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newKeygenCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
