// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for cph components.
//
// The logging system is built on Go's standard library slog package:
//
//   - Default: stderr output for CLI compatibility (follows Unix conventions)
//   - Optional: file logging with automatic directory creation
//
// # Basic Usage
//
// For simple CLI usage with stderr output:
//
//	logger := logging.Default()
//	logger.Info("workflow started", "session_id", sessionID)
//
// # File Logging
//
// To enable file logging alongside stderr:
//
//	logger, err := logging.New(logging.Config{
//	    Level:   slog.LevelInfo,
//	    LogDir:  "~/.cph/logs", // supports ~ expansion
//	    Service: "cph",
//	})
//	defer logger.Close() // flushes and closes the file
//
// This creates log files named {service}_{date}.log in JSON format.
//
// # Thread Safety
//
// Logger is safe for concurrent use; the underlying slog.Logger is
// thread-safe and the file handle is written through slog only.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level that gets emitted.
	Level slog.Level

	// LogDir enables file logging when non-empty. A leading ~ expands to
	// the user's home directory.
	LogDir string

	// Service names the log file ({service}_{date}.log). Defaults to "cph".
	Service string
}

// Logger wraps slog with an optional file destination.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Default returns a stderr-only logger at Info level.
func Default() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

// New builds a logger from the config.
//
// Outputs:
//
//	*Logger - The configured logger. Callers owning a file-backed logger
//	must Close it.
//	error - Non-nil when the log directory cannot be prepared.
func New(cfg Config) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	if cfg.LogDir == "" {
		return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, opts))}, nil
	}

	dir, err := expandHome(cfg.LogDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	service := cfg.Service
	if service == "" {
		service = "cph"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))

	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	// text to the terminal, JSON to the file
	return &Logger{
		Logger: slog.New(fanoutHandler{
			slog.NewTextHandler(os.Stderr, opts),
			slog.NewJSONHandler(file, opts),
		}),
		file: file,
	}, nil
}

// fanoutHandler dispatches every record to all child handlers.
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, child := range h {
		if !child.Enabled(ctx, record.Level) {
			continue
		}
		if err := child.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	children := make(fanoutHandler, len(h))
	for i, child := range h {
		children[i] = child.WithAttrs(attrs)
	}
	return children
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	children := make(fanoutHandler, len(h))
	for i, child := range h {
		children[i] = child.WithGroup(name)
	}
	return children
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func expandHome(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding ~ in log directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~")), nil
}
