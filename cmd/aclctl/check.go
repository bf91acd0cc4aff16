// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <acl> <user> <permission>",
		Short: "Check whether a user holds a permission on an ACL",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, cleanup, err := newController(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			allowed, err := ctrl.HasPermission(ctx, args[1], args[0], args[2])
			if err != nil {
				return err
			}
			if allowed {
				cmd.Println("allowed")
			} else {
				cmd.Println("denied")
			}
			return nil
		},
	}
}

// NewPermsCmd creates the perms subcommand.
func NewPermsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "perms <acl> <user>",
		Short: "List the permissions a user holds on an ACL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, cleanup, err := newController(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			perms, err := ctrl.Permissions(ctx, args[1], args[0])
			if err != nil {
				return err
			}
			cmd.Println(strings.Join(perms, ","))
			return nil
		},
	}
}

// NewListCmd creates the list subcommand.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all ACL names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ctrl, cleanup, err := newController(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			names, err := ctrl.AclNames(ctx)
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}
