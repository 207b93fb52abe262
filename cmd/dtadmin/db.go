package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInitDBCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create indexes and initialize or migrate the database",
		Long: `Creates the indexes, then sets up a fresh database with the default user
or migrates an older one to this build's schema version.

The default user's API key is printed once, when it is created.`,
		Args: cobra.NoArgs,
		RunE: run(g, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			out, err := s.admin.InitDB(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch {
			case out.Initialized:
				fmt.Fprintf(w, "database initialized at version %d\n", out.To)
				fmt.Fprintf(w, "default user: %s (%s)\n", out.DefaultUser.Email, out.DefaultUser.ID)
				fmt.Fprintf(w, "api key: %s\n", out.DefaultUser.APIKey)
			case out.From != out.To:
				fmt.Fprintf(w, "database migrated from version %d to %d\n", out.From, out.To)
			default:
				fmt.Fprintf(w, "database is current (version %d)\n", out.To)
			}
			return nil
		}),
	}
}

func newCheckDBCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Report the database setup state and schema version",
		Args:  cobra.NoArgs,
		RunE: run(g, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			st, err := s.admin.Status(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "setup started:  %v\n", st.Started)
			fmt.Fprintf(w, "setup finished: %v\n", st.Finished)
			fmt.Fprintf(w, "schema version: %d (expected %d)\n", st.Version, st.Expected)
			fmt.Fprintf(w, "users:          %d\n", st.Users)
			fmt.Fprintf(w, "change log:     %d entries\n", st.Changes)
			if !st.Current() {
				return fmt.Errorf("database needs init-db")
			}
			return nil
		}),
	}
}
