// Command gatehouse runs the badge-scan ingestion service and the operator
// tools that go with it.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/logging"
)

var version = "dev" // set by the linker

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}

// newRootCmd builds a fresh command tree, so tests can run commands in
// isolation.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "gatehouse",
		Short:        "RFID access-control ingestion and notification service",
		Version:      version,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./gatehouse.yaml if present)")
	pf.String("db-path", "./data/gatehouse.db", "SQLite database path")
	pf.String("env", "dev", `environment ("dev" seeds a demo tag)`)
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", logging.FormatJSON, `log format ("json" or "console")`)

	load := func(c *cobra.Command) (config.Config, zerolog.Logger, error) {
		cfg, err := config.Load(c.Flags(), cfgFile)
		if err != nil {
			return config.Config{}, zerolog.Nop(), err
		}
		logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, c.ErrOrStderr())
		if err != nil {
			return config.Config{}, zerolog.Nop(), err
		}
		return cfg, logger, nil
	}

	cmd.AddCommand(
		newServeCmd(load),
		newOpenCmd(load),
		newTagsCmd(load),
		newHashPasswordCmd(),
	)
	return cmd
}

type loadFunc func(c *cobra.Command) (config.Config, zerolog.Logger, error)
