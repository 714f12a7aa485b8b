// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"context"
	"log/slog"

	"github.com/kirkas-siivous/kirkas/geocoding"
)

// logProviderFailure records a failed geocoder call. Throttling and exhausted
// quotas need operator attention and are logged as errors; timeouts are
// routine on slow networks.
func logProviderFailure(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	level := slog.LevelWarn
	reason := "provider"

	switch {
	case geocoding.IsRateLimitError(err):
		level, reason = slog.LevelError, "rate_limit"
	case geocoding.IsQuotaExceededError(err):
		level, reason = slog.LevelError, "quota_exceeded"
	case geocoding.IsTimeoutError(err):
		level, reason = slog.LevelInfo, "timeout"
	}

	logger.Log(ctx, level, msg, append(args, "reason", reason, "error", err)...)
}
