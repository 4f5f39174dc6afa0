// Command caseqc-server runs the case QC review API.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/caseqc/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "caseqc-server",
		Short:        "Case QC review and approval service",
		Version:      config.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the JSON logger every component shares.
func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("log_level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}
