// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

// Package config reads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/kirkas-siivous/kirkas/geocoding"
	"github.com/kirkas-siivous/kirkas/quote"
	"github.com/kirkas-siivous/kirkas/spatial"
)

// Prefix of every environment variable, e.g. KIRKAS_LISTEN or
// KIRKAS_GEOCODER_USER_AGENT.
const Prefix = "kirkas"

// Config is the whole process configuration.
type Config struct {
	Listen    string `split_words:"true" default:":8080" desc:"HTTP listen address"`
	LogLevel  string `split_words:"true" default:"info" desc:"debug, info, warn or error"`
	LogFormat string `split_words:"true" default:"auto" desc:"auto, text or json"`
	HTTPTrace bool   `split_words:"true" default:"false" desc:"log outgoing provider requests"`

	Geocoder GeocoderConfig
	Cache    CacheConfig
	Fee      FeeConfig
	Quote    QuoteConfig
}

// GeocoderConfig selects and configures the geocoding provider.
type GeocoderConfig struct {
	Provider       string        `split_words:"true" default:"nominatim" desc:"nominatim or google_maps"`
	NominatimURL   string        `split_words:"true" default:"https://nominatim.openstreetmap.org"`
	UserAgent      string        `split_words:"true" default:"kirkas-quote/1.0 (+https://kirkas.fi)"`
	AcceptLanguage string        `split_words:"true" default:"fi,en"`
	MinInterval    time.Duration `split_words:"true" default:"1s" desc:"minimum spacing of Nominatim requests"`
	GoogleAPIKey   string        `split_words:"true" desc:"Maps key; looked up through ADC when empty"`
	GoogleProject  string        `split_words:"true" desc:"GCP project holding the Maps key"`
	GoogleKeyName  string        `split_words:"true" default:"Kirkas Geocoding Key"`
}

// CacheConfig configures the geocoder response cache.
type CacheConfig struct {
	Path string        `split_words:"true" default:"kirkas-cache.duckdb" desc:"DuckDB file; empty disables the cache"`
	TTL  time.Duration `split_words:"true" default:"720h"`
}

// FeeConfig is the travel tariff.
type FeeConfig struct {
	OfficeLat    float64 `split_words:"true" default:"60.293358"`
	OfficeLng    float64 `split_words:"true" default:"25.037989"`
	FreeRadiusKm float64 `split_words:"true" default:"10"`
	PerKmRate    float64 `split_words:"true" default:"0.50"`
}

// QuoteConfig tunes the live quote engine.
type QuoteConfig struct {
	Countries       []string      `split_words:"true" default:"Finland,Suomi"`
	CountryCodes    []string      `split_words:"true" default:"fi"`
	ResolveDebounce time.Duration `split_words:"true" default:"1s"`
	SuggestDebounce time.Duration `split_words:"true" default:"300ms"`
	LookupTimeout   time.Duration `split_words:"true" default:"10s"`
	SessionTTL      time.Duration `split_words:"true" default:"30m" desc:"idle time before an API session is dropped"`
}

// Load reads envFile (".env" when empty, silently skipped if missing) and
// then the KIRKAS_* environment. Variables already set in the environment win
// over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	cfg := new(Config)
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.Geocoder.Provider {
	case geocoding.ProviderNominatim, geocoding.ProviderGoogleMaps, "google":
	default:
		return fmt.Errorf("unknown geocoding provider %q", c.Geocoder.Provider)
	}

	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	if err := c.Fee.Office().Validate(); err != nil {
		return fmt.Errorf("office location: %w", err)
	}

	if c.Fee.FreeRadiusKm < 0 || c.Fee.PerKmRate < 0 {
		return errors.New("free radius and per-km rate must not be negative")
	}

	if len(c.Quote.Countries) == 0 && len(c.Quote.CountryCodes) == 0 {
		return errors.New("at least one local country is required")
	}

	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}

	return level, nil
}

// Office returns the configured trip origin.
func (f FeeConfig) Office() spatial.Point {
	return spatial.Point{Lat: f.OfficeLat, Lng: f.OfficeLng}
}

// Policy returns the configured tariff.
func (f FeeConfig) Policy() spatial.FeePolicy {
	return spatial.FeePolicy{
		Origin:       f.Office(),
		FreeRadiusKm: f.FreeRadiusKm,
		PerKmRate:    f.PerKmRate,
	}
}

// Gate returns the configured service area.
func (q QuoteConfig) Gate() *quote.CountryGate {
	return quote.NewCountryGate(q.Countries, q.CountryCodes)
}

// SessionOptions returns the quote engine options, minus the geocoder.
func (c *Config) SessionOptions(logger *slog.Logger) quote.SessionOptions {
	return quote.SessionOptions{
		Policy:          c.Fee.Policy(),
		Countries:       c.Quote.Gate(),
		ResolveDebounce: c.Quote.ResolveDebounce,
		SuggestDebounce: c.Quote.SuggestDebounce,
		Timeout:         c.Quote.LookupTimeout,
		Logger:          logger,
	}
}

// Usage writes the list of recognised variables to w.
func Usage(w io.Writer) error {
	return envconfig.Usagef(Prefix, &Config{}, w, envconfig.DefaultTableFormat)
}
