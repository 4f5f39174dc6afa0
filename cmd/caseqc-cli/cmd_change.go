package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/persistorai/caseqc/client"
)

func newChangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change",
		Short: "Record and inspect field corrections",
	}
	cmd.AddCommand(changeRecordCmd())
	cmd.AddCommand(changeListCmd())
	cmd.AddCommand(changeGetCmd())
	return cmd
}

func changeRecordCmd() *cobra.Command {
	var req client.ChangeLogRequest
	cmd := &cobra.Command{
		Use:   "record <review-id> <field> <new-value>",
		Short: "Record a field correction on a review",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			req.FieldName = args[1]
			req.NewValue = args[2]
			entry, err := apiClient.Changes.Record(context.Background(), args[0], &req)
			if err != nil {
				fatal("record change", err)
			}
			output(entry, entry.ID)
		},
	}
	cmd.Flags().StringVar(&req.PreviousValue, "previous", "", "Value before the correction")
	cmd.Flags().StringVar(&req.Annotation, "annotation", "", "Why the value was changed")
	return cmd
}

func changeListCmd() *cobra.Command {
	var opts client.ChangeListOptions
	cmd := &cobra.Command{
		Use:   "list <review-id>",
		Short: "List corrections recorded on a review",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entries, hasMore, err := apiClient.Changes.List(context.Background(), args[0], &opts)
			if err != nil {
				fatal("list changes", err)
			}
			outputChanges(entries, hasMore)
		},
	}
	cmd.Flags().StringVar(&opts.FieldName, "field", "", "Filter by field name")
	cmd.Flags().StringVar(&opts.AuthorID, "author", "", "Filter by author ID")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "Max results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Pagination offset")
	return cmd
}

func changeGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <change-id>",
		Short: "Get a change-log entry by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entry, err := apiClient.Changes.Get(context.Background(), args[0])
			if err != nil {
				fatal("get change", err)
			}
			output(entry, entry.ID)
		},
	}
}
