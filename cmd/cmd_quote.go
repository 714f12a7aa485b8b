// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kirkas-siivous/kirkas/geocoding"
	"github.com/kirkas-siivous/kirkas/pricing"
	"github.com/kirkas-siivous/kirkas/quote"
	"github.com/kirkas-siivous/kirkas/spatial"
	"github.com/kirkas-siivous/kirkas/utils/textutils"
)

type quoteOptions struct {
	property  string
	area      float64
	level     string
	frequency string
	fee       float64
	address   string
	json      bool
}

var quoteOpts = &quoteOptions{}

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Compute cleaning quotes",
}

var quoteEstimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Compute a single quote",
	Long: `Computes a quote from flags. With --address the travel fee is derived
from the geocoded address; otherwise --fee is used as is.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, err := quoteOpts.input()
		if err != nil {
			return err
		}

		fee := quoteOpts.fee

		var st quote.Status

		if in.Address != "" {
			g, closeGeocoder, err := newGeocoder(cmd.Context())
			if err != nil {
				return err
			}
			defer closeGeocoder()

			r := newResolver(g)
			defer r.Close()

			st = r.Lookup(cmd.Context(), in.Address)
			fee = st.Fee
		}

		snap := quote.Snapshot{
			Input:           in,
			ServiceReceiver: in.ServiceReceiver(),
			Estimate:        pricing.Estimate(in, fee),
			Status:          st,
			Error:           st.Problem(),
		}

		if quoteOpts.json {
			return writeJSON(cmd.OutOrStdout(), snap)
		}

		printSnapshot(cmd.OutOrStdout(), snap)

		return nil
	},
}

var quoteWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Drive a live quote session from stdin",
	Long: `Reads one edit per line from stdin and prints the quote after every change.

Edits:
  property <apartment|house|office>
  area <sqm>
  level <basic|standard|premium>
  frequency <once|weekly|biweekly|monthly>
  address <free text>
  select <n>
  locate <lat>,<lon> | locate denied

Pending lookups are flushed at end of input and the final quote is printed as JSON.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		g, closeGeocoder, err := newGeocoder(ctx)
		if err != nil {
			return err
		}
		defer closeGeocoder()

		in, err := quoteOpts.input()
		if err != nil {
			return err
		}

		opts := cfg.SessionOptions(logger)
		opts.Geocoder = g
		opts.Input = &in

		s := quote.NewSession(opts)
		defer s.Close()

		out := cmd.OutOrStdout()
		cancel := s.OnChange(func(snap quote.Snapshot) { printLine(out, snap) })

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			if err := applyEdit(ctx, s, scanner.Text()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			}
		}

		if err := scanner.Err(); err != nil {
			return err
		}

		s.Flush()
		cancel()

		return writeJSON(out, s.Snapshot())
	},
}

var quoteBatchCmd = &cobra.Command{
	Use:   "batch [file.csv]",
	Short: "Price every row of a CSV file",
	Long: `Reads a CSV with a header naming any of the columns property, area, level,
frequency and address (missing columns take the defaults) and writes the same
rows followed by the computed quote. Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var src io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			src = f
		}

		g, closeGeocoder, err := newGeocoder(ctx)
		if err != nil {
			return err
		}
		defer closeGeocoder()

		r := newResolver(g)
		defer r.Close()

		var progress func()

		if isTerminal(os.Stderr) {
			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("Pricing"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			defer func() { _ = bar.Finish() }()

			progress = func() { _ = bar.Add(1) }
		}

		n, err := runBatch(ctx, r, src, cmd.OutOrStdout(), progress)
		logger.Info("batch done", "rows", textutils.FormatInt(int64(n)))

		return err
	},
}

// addressLookup is the part of quote.Resolver used for batches.
type addressLookup interface {
	Lookup(ctx context.Context, address string) quote.Status
}

var batchOutputColumns = []string{
	"hours", "rate", "discount", "base_price", "distance_fee", "total_price", "billing_period", "distance_km", "error",
}

// runBatch prices every CSV row of src and returns the number of rows written.
func runBatch(ctx context.Context, r addressLookup, src io.Reader, dst io.Writer, progress func()) (int, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[textutils.LowerASCIIFolding(name)] = i
	}

	writer := csv.NewWriter(dst)
	defer writer.Flush()

	if err := writer.Write(append(append([]string(nil), header...), batchOutputColumns...)); err != nil {
		return 0, err
	}

	n := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return n, fmt.Errorf("reading row %d: %w", n+1, err)
		}

		field := func(name, fallback string) string {
			if i, ok := columns[name]; ok && i < len(record) && record[i] != "" {
				return record[i]
			}

			return fallback
		}

		opts := quoteOptions{
			property:  field("property", string(pricing.Apartment)),
			level:     field("level", string(pricing.Standard)),
			frequency: field("frequency", string(pricing.Biweekly)),
			address:   field("address", ""),
		}

		opts.area, err = strconv.ParseFloat(field("area", strconv.Itoa(pricing.DefaultAreaSqm)), 64)
		if err != nil {
			return n, fmt.Errorf("row %d: area: %w", n+1, err)
		}

		in, err := opts.input()
		if err != nil {
			return n, fmt.Errorf("row %d: %w", n+1, err)
		}

		var st quote.Status
		if in.Address != "" {
			st = r.Lookup(ctx, in.Address)
		}

		est := pricing.Estimate(in, st.Fee)

		row := append(slices.Clone(record),
			formatFloat(est.Hours),
			formatFloat(est.Rate),
			formatFloat(est.Discount),
			formatFloat(est.BasePrice),
			formatFloat(est.DistanceFee),
			formatFloat(est.TotalPrice),
			string(est.BillingPeriod),
			formatFloat(st.DistanceKm),
			st.Problem().String(),
		)
		if err := writer.Write(row); err != nil {
			return n, err
		}

		n++

		if progress != nil {
			progress()
		}
	}

	writer.Flush()

	return n, writer.Error()
}

// applyEdit applies one line of the watch protocol to s.
func applyEdit(ctx context.Context, s *quote.Session, line string) error {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "":
		return nil
	case "property":
		v, err := pricing.ParsePropertyType(arg)
		if err != nil {
			return err
		}

		s.SetPropertyType(v)
	case "area":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("area: %w", err)
		}

		s.SetArea(v)
	case "level":
		v, err := pricing.ParseServiceLevel(arg)
		if err != nil {
			return err
		}

		s.SetServiceLevel(v)
	case "frequency":
		v, err := pricing.ParseFrequency(arg)
		if err != nil {
			return err
		}

		s.SetFrequency(v)
	case "address":
		s.SetAddress(arg)
	case "select":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("select: %w", err)
		}

		return s.SelectSuggestion(i)
	case "locate":
		loc, err := parseLocator(arg)
		if err != nil {
			return err
		}

		return s.Locate(ctx, loc)
	case "flush":
		s.Flush()
	default:
		return fmt.Errorf("unknown edit %q", verb)
	}

	return nil
}

func parseLocator(arg string) (quote.Locator, error) {
	switch arg {
	case "denied":
		return quote.StaticLocator{Denied: true}, nil
	case "", "unavailable":
		return quote.StaticLocator{}, nil
	}

	lat, lon, ok := strings.Cut(arg, ",")
	if !ok {
		return nil, fmt.Errorf("locate: want <lat>,<lon>, got %q", arg)
	}

	var p spatial.Point

	var err error
	if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return nil, fmt.Errorf("locate: latitude: %w", err)
	}

	if p.Lng, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
		return nil, fmt.Errorf("locate: longitude: %w", err)
	}

	return quote.StaticLocator{Point: &p}, nil
}

func (o *quoteOptions) input() (pricing.QuoteInput, error) {
	property, err := pricing.ParsePropertyType(o.property)
	if err != nil {
		return pricing.QuoteInput{}, err
	}

	level, err := pricing.ParseServiceLevel(o.level)
	if err != nil {
		return pricing.QuoteInput{}, err
	}

	frequency, err := pricing.ParseFrequency(o.frequency)
	if err != nil {
		return pricing.QuoteInput{}, err
	}

	return pricing.QuoteInput{
		PropertyType: property,
		AreaSqm:      pricing.ClampArea(o.area),
		ServiceLevel: level,
		Frequency:    frequency,
		Address:      strings.TrimSpace(o.address),
	}, nil
}

func newResolver(g geocoding.Geocoder) *quote.Resolver {
	opts := cfg.SessionOptions(logger)

	return quote.NewResolver(quote.ResolverOptions{
		Geocoder:  g,
		Policy:    opts.Policy,
		Countries: opts.Countries,
		Timeout:   opts.Timeout,
		Logger:    logger,
	})
}

func printSnapshot(w io.Writer, snap quote.Snapshot) {
	est := snap.Estimate

	fmt.Fprintf(w, "%-14s %s (%s)\n", "Property", snap.Input.PropertyType, snap.ServiceReceiver)
	fmt.Fprintf(w, "%-14s %s m²\n", "Area", formatFloat(snap.Input.AreaSqm))
	fmt.Fprintf(w, "%-14s %s, %s\n", "Service", snap.Input.ServiceLevel, snap.Input.Frequency)

	if snap.Input.Address != "" {
		fmt.Fprintf(w, "%-14s %s\n", "Address", snap.Input.Address)

		if snap.Status.Result != nil {
			fmt.Fprintf(w, "%-14s %s (%.1f km)\n", "Resolved", snap.Status.Result.DisplayName, snap.Status.DistanceKm)
		}
	}

	fmt.Fprintf(w, "%-14s %s h × %s €/h × %s\n", "Hours", formatFloat(est.Hours), formatFloat(est.Rate), formatFloat(est.Discount))
	fmt.Fprintf(w, "%-14s %s €\n", "Base", formatFloat(est.BasePrice))
	fmt.Fprintf(w, "%-14s %s €\n", "Travel fee", formatFloat(est.DistanceFee))
	fmt.Fprintf(w, "%-14s %s € %s\n", "Total", formatFloat(est.TotalPrice), est.BillingPeriod)

	if snap.Error != quote.NoError {
		fmt.Fprintf(w, "%-14s %s\n", "Problem", snap.Error)
	}
}

func printLine(w io.Writer, snap quote.Snapshot) {
	line := fmt.Sprintf("[%s] %s € %s (fee %s)",
		snap.Status.State, formatFloat(snap.Estimate.TotalPrice), snap.Estimate.BillingPeriod, formatFloat(snap.Estimate.DistanceFee))

	if snap.Error != quote.NoError {
		line += " " + snap.Error.String()
	}

	for i, s := range snap.Suggestions {
		line += fmt.Sprintf("\n  %d: %s", i, s)
	}

	fmt.Fprintln(w, line)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.AddCommand(quoteEstimateCmd)
	quoteCmd.AddCommand(quoteWatchCmd)
	quoteCmd.AddCommand(quoteBatchCmd)

	for _, c := range []*cobra.Command{quoteEstimateCmd, quoteWatchCmd} {
		c.Flags().StringVar(&quoteOpts.property, "property", string(pricing.Apartment), "apartment, house or office")
		c.Flags().Float64Var(&quoteOpts.area, "area", pricing.DefaultAreaSqm, "area in square meters")
		c.Flags().StringVar(&quoteOpts.level, "level", string(pricing.Standard), "basic, standard or premium")
		c.Flags().StringVar(&quoteOpts.frequency, "frequency", string(pricing.Biweekly), "once, weekly, biweekly or monthly")
		c.Flags().StringVar(&quoteOpts.address, "address", "", "service address")
	}

	quoteEstimateCmd.Flags().Float64Var(&quoteOpts.fee, "fee", 0, "travel fee when no address is given")
	quoteEstimateCmd.Flags().BoolVar(&quoteOpts.json, "json", false, "print the quote as JSON")
}
