package main

import (
	"fmt"

	"chama_admin/internal/infra/config"
	idb "chama_admin/internal/infra/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StorageDriverPostgres {
				fmt.Fprintf(cmd.OutOrStdout(), "Storage driver %q needs no migrations\n", cfg.StorageDriver)
				return nil
			}

			db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := idb.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(applied))
			return nil
		},
	}
}
