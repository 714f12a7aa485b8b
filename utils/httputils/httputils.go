// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides utility functions for working with HTTP.
package httputils

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

// ClientOptions describes the outbound HTTP client used for provider calls.
type ClientOptions struct {
	// Timeout bounds a whole request, including reading the body
	Timeout time.Duration

	// UserAgent is sent on every request when not empty
	UserAgent string

	// Headers are set on every request
	Headers map[string]string

	// Trace logs every request and response
	Trace bool

	// TraceBody includes bodies in traces
	TraceBody bool

	// Logger receives traces; slog.Default() when nil
	Logger *slog.Logger

	// Transport is the base transport; http.DefaultTransport when nil
	Transport http.RoundTripper
}

// NewClient builds an *http.Client that stacks the round trippers requested by opts.
func NewClient(opts ClientOptions) *http.Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	headers := make(map[string]string, len(opts.Headers)+1)
	for k, v := range opts.Headers {
		headers[k] = v
	}

	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	if len(headers) > 0 {
		transport = &AppendRequestHeadersRoundTripper{Transport: transport, Headers: headers}
	}

	if opts.Trace {
		transport = &TraceRoundTripper{Transport: transport, Logger: opts.Logger, DumpBody: opts.TraceBody}
	}

	return &http.Client{Timeout: opts.Timeout, Transport: transport}
}

/////////////////////////////////////////
/// RountTrippers

// TraceRoundTripper logs every HTTP transaction through slog.
type TraceRoundTripper struct {
	Transport http.RoundTripper
	Logger    *slog.Logger
	DumpBody  bool
}

// reduce the content of the lines.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 256, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "authorization:") {
			line = "Authorization: <redacted>"
		}

		if len(line) > maxChars {
			line = line[0:maxChars] + "…"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	return lines
}

func (t *TraceRoundTripper) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}

	return slog.Default()
}

// RoundTrip implements the http.RoundTripper interface.
func (t *TraceRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := t.logger()
	ctx := req.Context()

	if logger.Enabled(ctx, slog.LevelDebug) {
		// request bodies are never dumped: DumpRequestOut would drain them.
		if dump, err := httputil.DumpRequestOut(redactedRequest(req), false); err == nil {
			logger.DebugContext(ctx, "http request dump",
				"dump", strings.Join(abbreviate(strings.Split(string(dump), "\n"), '>'), "\n"))
		}
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		logger.WarnContext(ctx, "http request failed",
			"method", req.Method,
			"url", redactURL(req),
			"duration", time.Since(start),
			"error", err)

		return nil, err
	}

	logger.InfoContext(ctx, "http request",
		"method", req.Method,
		"url", redactURL(req),
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if logger.Enabled(ctx, slog.LevelDebug) {
		t.dumpResponse(ctx, logger, resp)
	}

	return resp, nil
}

func (t *TraceRoundTripper) dumpResponse(ctx context.Context, logger *slog.Logger, resp *http.Response) {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		logger.DebugContext(ctx, "tracing HTTP response", "error", err)

		return
	}

	logger.DebugContext(ctx, "http response dump",
		"dump", strings.Join(abbreviate(strings.Split(string(dump), "\n"), '<'), "\n"))
}

// redactURL drops credentials carried in the query string (Google's key=).
func redactURL(req *http.Request) string {
	return redact(req.URL).String()
}

func redact(in *url.URL) *url.URL {
	u := *in

	q := u.Query()
	if q.Has("key") {
		q.Set("key", "redacted")
		u.RawQuery = q.Encode()
	}

	return &u
}

func redactedRequest(req *http.Request) *http.Request {
	r := req.Clone(req.Context())
	r.URL = redact(req.URL)
	r.Body = nil

	return r
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}
