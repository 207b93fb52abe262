package main

import (
	"context"
	"fmt"

	"github.com/dalemusser/datatracker/internal/app/system/permissions"
	"github.com/spf13/cobra"
)

func newAddUserCommand(g *globalFlags) *cobra.Command {
	var (
		name  string
		email string
		perms []string
	)
	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Register a user",
		Example: `  dtadmin add-user --email steward@example.org --name "Data Steward" \
      --permission DATA_MANAGEMENT --permission USER_MANAGEMENT`,
		Args: cobra.NoArgs,
		RunE: run(g, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			id, err := s.admin.AddUser(ctx, name, email, perms)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringSliceVar(&perms, "permission", nil, fmt.Sprintf("permission to grant, repeatable %v", permissions.All()))
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAPIKeyCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "apikey <user id or email>",
		Short: "Issue a new API key for a user, replacing the old one",
		Args:  cobra.ExactArgs(1),
		RunE: run(g, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			id, key, err := s.admin.IssueAPIKey(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user: %s\napi key: %s\n", id, key)
			return nil
		}),
	}
}
