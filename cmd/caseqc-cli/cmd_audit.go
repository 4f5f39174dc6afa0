package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/caseqc/client"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the audit log",
	}
	cmd.AddCommand(auditQueryCmd())
	return cmd
}

func auditQueryCmd() *cobra.Command {
	var opts client.AuditQueryOptions
	var since string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query audit entries (supervisor only)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if since != "" {
				t, err := parseSince(since, time.Now())
				if err != nil {
					fatal("audit query", err)
				}
				opts.Since = &t
			}
			entries, hasMore, err := apiClient.Audit.Query(context.Background(), &opts)
			if err != nil {
				fatal("audit query", err)
			}
			outputAudit(entries, hasMore)
		},
	}
	cmd.Flags().StringVar(&opts.ReviewID, "review", "", "Filter by review ID")
	cmd.Flags().StringVar(&opts.CaseID, "case", "", "Filter by case ID")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "Filter by actor")
	cmd.Flags().StringVar(&opts.Action, "action", "", "Filter by action")
	cmd.Flags().StringVar(&opts.EntityType, "entity-type", "", "Filter by entity type")
	cmd.Flags().StringVar(&since, "since", "", "RFC3339 timestamp or duration such as 24h")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Pagination offset")
	return cmd
}

// parseSince accepts an RFC3339 timestamp or a duration counted back from now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return time.Time{}, fmt.Errorf("invalid --since %q: want RFC3339 or a positive duration", s)
	}
	return now.Add(-d), nil
}
