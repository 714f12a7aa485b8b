// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

// Package cmd holds the kirkas command line.
package cmd

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kirkas-siivous/kirkas/config"
)

type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string
	httpTrace bool
}

var (
	rootOpts = &rootOptions{}

	// cfg and logger are ready once PersistentPreRunE ran.
	cfg    *config.Config
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "kirkas",
	Short: "cleaning service quote engine",
	Long: `
kirkas computes cleaning service quotes: hours, hourly rate, frequency discount
and the travel fee to the customer's address, resolved through a geocoding
provider.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.Load(rootOpts.envFile)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.LogLevel = rootOpts.logLevel
		}

		if flags.Changed("log-format") {
			cfg.LogFormat = rootOpts.logFormat
		}

		if flags.Changed("http-trace") {
			cfg.HTTPTrace = rootOpts.httpTrace
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		level, _ := cfg.Level()
		logger = newLogger(os.Stderr, cfg.LogFormat, level)
		slog.SetDefault(logger)

		return nil
	},
}

// newLogger picks colored text on a terminal and JSON elsewhere, unless
// format says otherwise.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	if format == "auto" {
		format = "json"
		if isTerminal(w) {
			format = "text"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isTerminal(w),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOpts.envFile, "env-file", "", "dotenv file to load (default .env when present)")
	flags.StringVar(&rootOpts.logLevel, "log-level", "info", "debug, info, warn or error")
	flags.StringVar(&rootOpts.logFormat, "log-format", "auto", "auto, text or json")
	flags.BoolVar(&rootOpts.httpTrace, "http-trace", false, "log outgoing provider requests")
}
