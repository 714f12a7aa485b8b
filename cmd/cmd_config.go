// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kirkas-siivous/kirkas/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "List the environment variables kirkas reads",
	Args:  cobra.NoArgs,
	// the listing must work even when the current environment is invalid
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, _ []string) error {
		return config.Usage(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
