// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirkas-siivous/kirkas/geocoding"
	"github.com/kirkas-siivous/kirkas/spatial"
)

var geocodeLimit int

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Query the configured geocoding provider",
}

var geocodeSearchCmd = &cobra.Command{
	Use:   "search <address>",
	Short: "Forward geocode an address",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeGeocoder, err := newGeocoder(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGeocoder()

		places, err := g.Search(cmd.Context(), geocoding.SearchRequest{
			Query:          strings.Join(args, " "),
			AddressDetails: true,
			Limit:          geocodeLimit,
		})
		if err != nil {
			return err
		}

		if len(places) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "no results")

			return nil
		}

		return writeJSON(cmd.OutOrStdout(), places)
	},
}

var geocodeReverseCmd = &cobra.Command{
	Use:   "reverse <lat> <lon>",
	Short: "Reverse geocode a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var p spatial.Point

		var err error
		if p.Lat, err = strconv.ParseFloat(args[0], 64); err != nil {
			return fmt.Errorf("latitude: %w", err)
		}

		if p.Lng, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Errorf("longitude: %w", err)
		}

		if err := p.Validate(); err != nil {
			return err
		}

		g, closeGeocoder, err := newGeocoder(cmd.Context())
		if err != nil {
			return err
		}
		defer closeGeocoder()

		place, err := g.Reverse(cmd.Context(), geocoding.ReverseRequest{Point: p, AddressDetails: true})
		if err != nil {
			return err
		}

		return writeJSON(cmd.OutOrStdout(), place)
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	geocodeCmd.AddCommand(geocodeSearchCmd)
	geocodeCmd.AddCommand(geocodeReverseCmd)
	geocodeSearchCmd.Flags().IntVar(&geocodeLimit, "limit", geocoding.DefaultLimit, "maximum number of matches")
}
