// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirkas-siivous/kirkas/utils/textutils"
)

var cacheClearAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the geocoding response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count cached provider answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openCache()
		if err != nil {
			return err
		}

		if db == nil {
			return errors.New("the cache is disabled (KIRKAS_CACHE_PATH is empty)")
		}
		defer db.Close()

		stats, err := repo.Stats(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-16s %s\n", "Cache", cfg.Cache.Path)
		fmt.Fprintf(out, "%-16s %s\n", "Search entries", textutils.FormatInt(stats.SearchEntries))
		fmt.Fprintf(out, "%-16s %s\n", "Reverse entries", textutils.FormatInt(stats.ReverseEntries))

		if stats.Oldest != nil {
			fmt.Fprintf(out, "%-16s %s\n", "Oldest", stats.Oldest.Format(time.DateTime))
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repo, err := openCache()
		if err != nil {
			return err
		}

		if db == nil {
			return errors.New("the cache is disabled (KIRKAS_CACHE_PATH is empty)")
		}
		defer db.Close()

		cutoff := time.Now().Add(-cfg.Cache.TTL)
		if cacheClearAll {
			cutoff = time.Now().Add(time.Minute)
		}

		n, err := repo.Purge(cmd.Context(), cutoff)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Removed %s entries from %s\n", textutils.FormatInt(n), cfg.Cache.Path)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "drop every entry, not only the expired ones")
}
