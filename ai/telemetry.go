// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"log/slog"
	"time"
)

// LoggingMiddleware returns an [ActionMiddleware] that logs each action using slog.
func LoggingMiddleware(logger *slog.Logger) ActionMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ActionHandler) ActionHandler {
		return func(ctx context.Context, tc TurnContext, st *TurnState, params any, action string) (string, error) {
			start := time.Now()
			logger.DebugContext(ctx, "action started", "action", action)

			output, err := next(ctx, tc, st, params, action)

			duration := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "action failed",
					"action", action,
					"duration", duration,
					"error", err,
				)
				return output, err
			}

			logger.InfoContext(ctx, "action completed",
				"action", action,
				"duration", duration,
				"output_len", len(output),
				"stopped", output == StopCommand,
			)
			return output, nil
		}
	}
}
