package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/w3cp/w3cp/model"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%s:%s\n", model.ArtifactGroup, model.ArtifactID, model.Version)
		},
	}
}
