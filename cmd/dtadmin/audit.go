package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dalemusser/datatracker/internal/app/admin"
	"github.com/spf13/cobra"
)

func newAuditCommand(g *globalFlags) *cobra.Command {
	var (
		q      admin.AuditQuery
		failed time.Duration
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the security audit trail",
		Example: `  dtadmin audit --limit 20
  dtadmin audit --user steward@example.org
  dtadmin audit --failed 24h`,
		Args: cobra.NoArgs,
		RunE: run(g, func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			if failed > 0 {
				q.FailedSince = time.Now().UTC().Add(-failed)
			}
			events, err := s.admin.AuditEvents(ctx, q)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tEVENT\tUSER\tACTOR\tIP\tOK\tREASON")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%v\t%s\n",
					e.Timestamp.Format(time.RFC3339), e.EventType, e.UserID, e.ActorID, e.IP, e.Success, e.FailureReason)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&q.User, "user", "", "only events affecting this user (id or email)")
	cmd.Flags().DurationVar(&failed, "failed", 0, "only failed sign-ins within this period")
	cmd.Flags().Int64Var(&q.Limit, "limit", 50, "maximum number of events")
	return cmd
}
