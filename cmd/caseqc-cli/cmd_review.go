package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/persistorai/caseqc/client"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Open, inspect and move case reviews",
	}
	cmd.AddCommand(reviewCreateCmd())
	cmd.AddCommand(reviewGetCmd())
	cmd.AddCommand(reviewListCmd())
	cmd.AddCommand(reviewTransitionCmd())
	cmd.AddCommand(reviewAuditCmd())
	return cmd
}

// parseModelOutputs turns "model:output_id" pairs into refs.
func parseModelOutputs(raw []string) ([]client.ModelOutputRef, error) {
	refs := make([]client.ModelOutputRef, 0, len(raw))
	for _, r := range raw {
		model, outputID, ok := strings.Cut(r, ":")
		if !ok || model == "" || outputID == "" {
			return nil, fmt.Errorf("invalid model output %q (want model:output_id)", r)
		}
		refs = append(refs, client.ModelOutputRef{Model: model, OutputID: outputID})
	}
	return refs, nil
}

func reviewCreateCmd() *cobra.Command {
	var reviewer string
	var outputs []string
	cmd := &cobra.Command{
		Use:   "create <case-id>",
		Short: "Open a review for a case",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			refs, err := parseModelOutputs(outputs)
			if err != nil {
				fatal("create review", err)
			}
			req := &client.CreateReviewRequest{
				CaseID:       args[0],
				ReviewerID:   reviewer,
				ModelOutputs: refs,
			}
			review, err := apiClient.Reviews.Create(context.Background(), req)
			if err != nil {
				fatal("create review", err)
			}
			output(review, review.ID)
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Assigned reviewer ID (required)")
	cmd.Flags().StringSliceVar(&outputs, "output", nil, "Model output as model:output_id (repeatable)")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func reviewGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <review-id>",
		Short: "Get a review by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			review, err := apiClient.Reviews.Get(context.Background(), args[0])
			if err != nil {
				fatal("get review", err)
			}
			if flagFmt == "table" {
				outputReviews([]client.Review{*review}, false)
				return
			}
			output(review, review.ID)
		},
	}
}

func reviewListCmd() *cobra.Command {
	var opts client.ReviewListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reviews",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			reviews, hasMore, err := apiClient.Reviews.List(context.Background(), &opts)
			if err != nil {
				fatal("list reviews", err)
			}
			outputReviews(reviews, hasMore)
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&opts.ReviewerID, "reviewer", "", "Filter by reviewer ID")
	cmd.Flags().StringVar(&opts.CaseID, "case", "", "Filter by case ID")
	cmd.Flags().BoolVar(&opts.Mine, "mine", false, "Only reviews assigned to me")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Pagination offset")
	return cmd
}

func reviewTransitionCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "transition <review-id> <status>",
		Short: "Move a review to a new status",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.TransitionRequest{TargetStatus: strings.ToUpper(args[1])}
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}
			review, err := apiClient.Reviews.Transition(context.Background(), args[0], req)
			if err != nil {
				var apiErr *client.APIError
				if client.IsInvalidTransition(err) && errors.As(err, &apiErr) && len(apiErr.AllowedStatuses()) > 0 {
					err = fmt.Errorf("%w (allowed: %s)", err, strings.Join(apiErr.AllowedStatuses(), ", "))
				}
				fatal("transition review", err)
			}
			output(review, review.Status)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Reviewer or supervisor notes")
	return cmd
}

func reviewAuditCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "audit <review-id>",
		Short: "Show the audit trail of a review",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entries, hasMore, err := apiClient.Reviews.Audit(context.Background(), args[0], limit, offset)
			if err != nil {
				fatal("review audit", err)
			}
			outputAudit(entries, hasMore)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	return cmd
}
