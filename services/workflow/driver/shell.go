// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package driver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

// ShellDriver runs execution step kinds as local processes.
//
// Description:
//
//	Commands are executed argv-style, never through a shell. Python steps
//	are routed through the python3 interpreter; build/test/oj/run steps
//	execute their argument vector as-is.
type ShellDriver struct {
	logger *slog.Logger

	// PythonInterpreter overrides the interpreter for python steps.
	PythonInterpreter string
}

// NewShellDriver creates a process driver.
func NewShellDriver(logger *slog.Logger) *ShellDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShellDriver{logger: logger, PythonInterpreter: "python3"}
}

// Execute runs a process request and captures its output.
func (d *ShellDriver) Execute(ctx context.Context, req Request) (*Result, error) {
	argv := append([]string(nil), req.Args...)
	if req.Kind == step.KindPython {
		argv = append([]string{d.PythonInterpreter}, argv...)
	}
	if len(argv) == 0 {
		return &Result{Success: false, ErrorMessage: "empty command"}, nil
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = req.Cwd

	var stdout, stderr bytes.Buffer
	if req.ShowOutput {
		cmd.Stdout = io.MultiWriter(&stdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	d.logger.Debug("spawning process",
		slog.String("argv0", argv[0]),
		slog.Int("args", len(argv)-1),
		slog.String("cwd", req.Cwd),
	)

	err := cmd.Run()
	result := &Result{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		result.ErrorMessage = err.Error()
	}

	return result, nil
}
