// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirkas-siivous/kirkas/api"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the quote API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, closeGeocoder, err := newGeocoder(ctx)
		if err != nil {
			return err
		}
		defer closeGeocoder()

		opts := cfg.SessionOptions(logger)
		opts.Geocoder = g

		addr := cfg.Listen
		if cmd.Flags().Changed("listen") {
			addr = serveListen
		}

		server := api.NewServer(api.Options{
			Session:    opts,
			SessionTTL: cfg.Quote.SessionTTL,
			Logger:     logger,
		})

		logger.Info("starting", "version", Version, "provider", cfg.Geocoder.Provider, "cache", cfg.Cache.Path)

		return server.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", ":8080", "HTTP listen address (overrides KIRKAS_LISTEN)")
}
