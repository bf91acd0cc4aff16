// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	acl "github.com/eea/eionet.acl"
	"github.com/eea/eionet.acl/provider"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the aclctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aclctl",
		Short: "Manage Eionet access control lists",
		Long: `aclctl inspects and manages access control lists stored in files,
PostgreSQL, or a mix of both. Configuration is read from the file named
by --config, overridable through ACL_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("provider", "", "persistence provider (file, postgres, mix)")
	cmd.PersistentFlags().String("acl-dir", "", "folder holding the ACL files")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewPermsCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewEntriesCmd())
	cmd.AddCommand(NewAddCmd())
	cmd.AddCommand(NewRemoveCmd())
	cmd.AddCommand(NewRenameCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadProperties reads the layered configuration, with the command's
// inherited flags as the topmost layer.
func loadProperties(cmd *cobra.Command) (acl.Properties, error) {
	return acl.LoadPropertiesWithFlags(configFile, cmd.Root().PersistentFlags())
}

// newController loads the configuration and wires the persistence
// backend behind a Controller. The returned cleanup releases the
// backend.
func newController(ctx context.Context, cmd *cobra.Command) (*acl.Controller, func(), error) {
	props, err := loadProperties(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.Default()
	storage, cleanup, err := provider.New(ctx, props, logger)
	if err != nil {
		return nil, nil, err
	}

	ctrl, err := acl.NewController(props, storage, acl.WithLogger(logger))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ctrl, cleanup, nil
}
