package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/w3cp/w3cp/internal/config"
	"github.com/w3cp/w3cp/internal/database"
	"github.com/w3cp/w3cp/internal/logger"
)

var errNoDatabase = errors.New("no database configured, set " + config.EnvPrefix + "DATABASE__HOST and friends")

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the session archive migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.Database == nil {
				return errNoDatabase
			}

			log := logger.NewLogger(cfg.Observability)
			return database.Migrate(cmd.Context(), &log, cfg.Database)
		},
	}
}
