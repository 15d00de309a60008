package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ent0n29/studychat/internal/transcript"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

func NewMigrateCmd() *cobra.Command {
	var showVersion bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply transcript schema migrations",
		Long: `Apply the embedded schema migrations to DATABASE_URL.

Examples:
  studychat migrate
  studychat migrate --version`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errNoDatabase
			}
			if !showVersion {
				if err := transcript.Migrate(cfg.DatabaseURL, log); err != nil {
					return err
				}
			}
			version, dirty, err := transcript.MigrationVersion(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (latest %d, dirty=%t)\n", version, transcript.LatestMigrationVersion, dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showVersion, "version", false, "Print the current schema version without migrating")
	return cmd
}
