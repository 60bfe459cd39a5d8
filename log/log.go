// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides context-scoped structured logging on top of [slog].
// A logger attached to a context with [AttachLogger] is used by every call
// made with that context; otherwise [slog.Default] is used.
package log

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// AttachLogger returns a context carrying the provided logger.
func AttachLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger attached to the context or the default logger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// Debug logs at [slog.LevelDebug].
func Debug(ctx context.Context, msg string, args ...any) {
	LoggerFrom(ctx).DebugContext(ctx, msg, args...)
}

// Info logs at [slog.LevelInfo].
func Info(ctx context.Context, msg string, args ...any) {
	LoggerFrom(ctx).InfoContext(ctx, msg, args...)
}

// Warn logs at [slog.LevelWarn].
func Warn(ctx context.Context, msg string, args ...any) {
	LoggerFrom(ctx).WarnContext(ctx, msg, args...)
}

// Error logs at [slog.LevelError] with err attached under the "error" key.
func Error(ctx context.Context, msg string, err error, args ...any) {
	LoggerFrom(ctx).ErrorContext(ctx, msg, append([]any{"error", err}, args...)...)
}
