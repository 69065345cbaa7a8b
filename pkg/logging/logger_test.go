// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_LogsWithoutFile(t *testing.T) {
	logger := Default()
	if logger.file != nil {
		t.Error("Default() must not open a file")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{Level: slog.LevelDebug, LogDir: dir, Service: "testsvc"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hello", "key", "value")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := filepath.Join(dir, "testsvc_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log file missing JSON record, got %q", data)
	}
	if !strings.Contains(string(data), `"key":"value"`) {
		t.Errorf("log file missing attribute, got %q", data)
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := New(Config{LogDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("log directory not created: %v", err)
	}
}

func TestFanoutHandler_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: slog.LevelWarn, LogDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug must be disabled at warn level")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelError) {
		t.Error("error must be enabled at warn level")
	}
}
