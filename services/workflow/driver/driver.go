// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package driver defines the execution boundary of the workflow engine.
//
// The engine never performs I/O itself: every leaf step is handed to a
// Driver through the uniform Execute contract. Drivers are injected at the
// composition root and must not reach back into the graph or the steps.
package driver

import (
	"context"
	"strconv"
	"strings"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

// Request is the derived, fully substituted form of a step handed to a
// driver. It is constructed per execution; the step itself stays read-only.
type Request struct {
	Kind       step.Kind
	Args       []string
	Cwd        string
	EnvType    string
	ShowOutput bool

	// Path, DstPath and Command are the denormalised views result
	// substitution rewrites alongside Args.
	Path    string
	DstPath string
	Command string
}

// NewRequest derives a Request from a step.
func NewRequest(s step.Step) Request {
	req := Request{
		Kind:       s.Kind,
		Args:       append([]string(nil), s.Cmd...),
		Cwd:        s.Cwd,
		EnvType:    s.ForceEnvType,
		ShowOutput: s.ShowOutput,
	}
	if len(req.Args) > 0 {
		req.Path = req.Args[0]
	}
	if len(req.Args) > 1 && step.IsFileOp(s.Kind) {
		req.DstPath = req.Args[1]
	}
	if !step.IsFileOp(s.Kind) {
		req.Command = strings.Join(req.Args, " ")
	}
	return req
}

// Result is the outcome of executing one request.
//
// A driver produces results for leaf steps; the engine itself produces
// results (with Skipped set) for nodes short-circuited by upstream failure
// or a false guard.
type Result struct {
	Success      bool
	ExitCode     int
	Stdout       string
	Stderr       string
	ErrorMessage string
	Path         string
	Exists       bool
	Skipped      bool
}

// Field returns the named result field as a string for placeholder
// substitution. The bool reports whether the name is known.
func (r *Result) Field(name string) (string, bool) {
	switch name {
	case "success":
		return strconv.FormatBool(r.Success), true
	case "exit_code", "returncode":
		return strconv.Itoa(r.ExitCode), true
	case "stdout":
		return r.Stdout, true
	case "stderr":
		return r.Stderr, true
	case "error_message":
		return r.ErrorMessage, true
	case "path":
		return r.Path, true
	case "exists":
		return strconv.FormatBool(r.Exists), true
	}
	return "", false
}

// Driver executes requests. Implementations are pure sinks: they may not
// mutate the graph, the steps, or anything else owned by the engine.
type Driver interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}
