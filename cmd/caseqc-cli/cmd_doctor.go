package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/caseqc/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against config, server, schema and auth",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor() error {
	fmt.Println("\ncaseqc doctor")
	fmt.Println("=============")

	var results []checkResult

	if path, err := configPath(); err == nil {
		if _, err := loadConfig(); err != nil {
			results = append(results, checkResult{
				Name: "Config file", Passed: false, Detail: path,
				Hint: "Optional. Profiles live under ~/.caseqc/config.yaml",
			})
		} else {
			results = append(results, checkResult{
				Name: "Config file", Passed: true, Detail: fmt.Sprintf("found (%s)", path),
			})
		}
	}

	results = append(results, checkResult{Name: "Server URL", Passed: flagURL != "", Detail: flagURL,
		Hint: "Set --url or CASEQC_URL"})

	results = append(results, doctorChecks(apiClient, flagToken != "")...)

	fmt.Println()
	allPassed := true
	for _, r := range results {
		mark := "ok  "
		if !r.Passed {
			mark = "FAIL"
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Printf("[%s] %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Printf("[%s] %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Printf("       Hint: %s\n", r.Hint)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Fprintln(os.Stderr, "Some checks failed.")
		return fmt.Errorf("doctor found issues")
	}
	fmt.Println("All checks passed.")
	return nil
}

// doctorChecks probes liveness, readiness and, when a token is configured,
// authentication against the running server.
func doctorChecks(c *client.Client, haveToken bool) []checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var results []checkResult

	health, err := c.Health(ctx)
	if err != nil {
		return append(results, checkResult{
			Name: "Server reachable", Passed: false,
			Hint: fmt.Sprintf("Is caseqc-server running? Error: %v", err),
		})
	}
	results = append(results, checkResult{
		Name: "Server reachable", Passed: true,
		Detail: fmt.Sprintf("v%s (%s backend)", health.Version, health.Backend),
	})

	ready, err := c.Ready(ctx)
	if err != nil {
		results = append(results, checkResult{
			Name: "Server ready", Passed: false,
			Hint: fmt.Sprintf("Database unreachable or schema behind. Try: caseqc-server migrate up. Error: %v", err),
		})
	} else {
		detail := ready.Checks["database"]
		if ready.SchemaVersion > 0 {
			detail = fmt.Sprintf("%s, schema v%d", detail, ready.SchemaVersion)
		}
		results = append(results, checkResult{Name: "Server ready", Passed: true, Detail: detail})
	}

	if !haveToken {
		return append(results, checkResult{
			Name: "Token", Passed: false,
			Hint: "Set --token or CASEQC_TOKEN, or mint one with: caseqc token",
		})
	}

	_, _, err = c.Reviews.List(ctx, &client.ReviewListOptions{Mine: true, Limit: 1})
	switch {
	case err == nil:
		results = append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid"})
	case client.IsForbidden(err):
		results = append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid (no reviewer role)"})
	default:
		results = append(results, checkResult{
			Name: "Authentication", Passed: false,
			Hint: fmt.Sprintf("Check your token. Error: %v", err),
		})
	}
	return results
}
