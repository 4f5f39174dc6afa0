package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/persistorai/caseqc/client"
)

func newCaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Register and inspect cases",
	}
	cmd.AddCommand(caseRegisterCmd())
	cmd.AddCommand(caseGetCmd())
	return cmd
}

func caseRegisterCmd() *cobra.Command {
	var req client.RegisterCaseRequest
	cmd := &cobra.Command{
		Use:   "register <case-id>",
		Short: "Register a case so reviews can be opened for it",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c, err := apiClient.Cases.Register(context.Background(), args[0], &req)
			if err != nil {
				fatal("register case", err)
			}
			output(c, c.ID)
		},
	}
	cmd.Flags().StringVar(&req.OrganizationID, "org", "", "Owning organization ID")
	cmd.Flags().StringVar(&req.Title, "title", "", "Case title")
	return cmd
}

func caseGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <case-id>",
		Short: "Get a case and its accepted output",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c, err := apiClient.Cases.Get(context.Background(), args[0])
			if err != nil {
				fatal("get case", err)
			}
			output(c, c.Status)
		},
	}
}
