// SPDX-License-Identifier: MPL-2.0
// Copyright 2026 Eionet Project Contributors

package main

import (
	"github.com/spf13/cobra"

	acl "github.com/eea/eionet.acl"
)

// NewEntriesCmd creates the entries subcommand.
func NewEntriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entries <acl>",
		Short: "Print an ACL's rows in text form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, cleanup, err := newController(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := ctrl.GetAcl(ctx, args[0])
			if err != nil {
				return err
			}
			if descr := list.Description(); descr != "" {
				cmd.Println("# " + descr)
			}
			cmd.Println("# owner: " + list.OwnerName())
			for _, row := range list.EntryRows() {
				cmd.Println(acl.FormatRow(row))
			}
			return nil
		},
	}
}

// NewAddCmd creates the add subcommand.
func NewAddCmd() *cobra.Command {
	var (
		owner       string
		description string
		container   bool
	)
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Create an ACL under an existing parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, cleanup, err := newController(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if container {
				err = ctrl.AddContainerAcl(ctx, args[0], owner, description)
			} else {
				err = ctrl.AddAcl(ctx, args[0], owner, description)
			}
			if err != nil {
				return err
			}
			cmd.Println("created " + args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner of the new ACL")
	cmd.Flags().StringVar(&description, "description", "", "description of the new ACL")
	cmd.Flags().BoolVar(&container, "container", false, "create a container ACL whose children inherit its templates")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// NewRemoveCmd creates the remove subcommand.
func NewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Delete an ACL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, cleanup, err := newController(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ctrl.RemoveAcl(ctx, args[0]); err != nil {
				return err
			}
			cmd.Println("removed " + args[0])
			return nil
		},
	}
}

// NewRenameCmd creates the rename subcommand.
func NewRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old-path> <new-path>",
		Short: "Rename an ACL within its parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, cleanup, err := newController(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := ctrl.RenameAcl(ctx, args[0], args[1]); err != nil {
				return err
			}
			cmd.Println("renamed " + args[0] + " to " + args[1])
			return nil
		},
	}
}
