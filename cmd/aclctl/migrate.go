// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	acl "github.com/eea/eionet.acl"
	"github.com/eea/eionet.acl/pgstore"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database schema migrations",
		Long:  `Apply all pending schema migrations to the configured PostgreSQL database.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			props, err := loadProperties(cmd)
			if err != nil {
				return err
			}
			if props.Persistence.Database.URL == "" {
				return oops.Code(acl.CodeInvalidConfig).Errorf("no database URL configured")
			}

			migrator, err := pgstore.NewMigrator(props.Persistence.Database.URL)
			if err != nil {
				return err
			}
			defer migrator.Close() //nolint:errcheck // close error is not actionable here

			if down {
				cmd.Println("Rolling back migrations...")
				if err := migrator.Down(); err != nil {
					return err
				}
				cmd.Println("Rollback completed")
				return nil
			}

			cmd.Println("Running migrations...")
			if err := migrator.Up(); err != nil {
				return err
			}
			version, dirty, err := migrator.Version()
			if err != nil {
				return err
			}
			cmd.Printf("Migrations completed, schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations instead of applying them")
	return cmd
}
