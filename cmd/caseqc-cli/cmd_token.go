package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/caseqc/internal/auth"
	"github.com/persistorai/caseqc/internal/models"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
		issuer  string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			token, err := mintToken(os.Getenv("JWT_SECRET"), issuer, subject, role, ttl)
			if err != nil {
				fatal("mint token", err)
			}
			fmt.Println(token)
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "Actor ID (required)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleReviewer), "Role: user|reviewer|supervisor")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "caseqc"), "Token issuer (env: JWT_ISSUER)")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

func mintToken(secret, issuer, subject, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return "", err
	}
	return auth.NewVerifier(secret, issuer).Sign(models.Actor{ID: subject, Role: r}, ttl)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
