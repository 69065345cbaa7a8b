// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package exec

import (
	"testing"

	"github.com/sugipamo/project-cph/services/workflow/driver"
)

func TestSubstitutePlaceholders_BothForms(t *testing.T) {
	results := map[string]*driver.Result{
		"step_0": {Success: true, Stdout: "42", ExitCode: 0},
	}

	got := SubstitutePlaceholders("echo {{step_0.stdout}}", results)
	if got != "echo 42" {
		t.Errorf("short form = %q, want %q", got, "echo 42")
	}

	got = SubstitutePlaceholders("echo {{step_0.result.stdout}}", results)
	if got != "echo 42" {
		t.Errorf("result form = %q, want %q", got, "echo 42")
	}
}

func TestSubstitutePlaceholders_UnknownStepLeftIntact(t *testing.T) {
	results := map[string]*driver.Result{}

	got := SubstitutePlaceholders("echo {{step_9.stdout}}", results)
	if got != "echo {{step_9.stdout}}" {
		t.Errorf("got %q, want placeholder intact", got)
	}
}

func TestSubstitutePlaceholders_UnknownFieldLeftIntact(t *testing.T) {
	results := map[string]*driver.Result{
		"step_0": {Success: true},
	}

	got := SubstitutePlaceholders("{{step_0.no_such_field}}", results)
	if got != "{{step_0.no_such_field}}" {
		t.Errorf("got %q, want placeholder intact", got)
	}
}

func TestSubstitutePlaceholders_MultipleFields(t *testing.T) {
	results := map[string]*driver.Result{
		"step_0": {Success: true, Stdout: "out", Stderr: "err", ExitCode: 3},
	}

	got := SubstitutePlaceholders("{{step_0.stdout}}/{{step_0.stderr}}/{{step_0.exit_code}}", results)
	if got != "out/err/3" {
		t.Errorf("got %q, want %q", got, "out/err/3")
	}
}

func TestApplyToRequest_RewritesAllSurfaces(t *testing.T) {
	results := map[string]*driver.Result{
		"step_0": {Success: true, Stdout: "value"},
	}
	req := driver.Request{
		Args:    []string{"echo", "{{step_0.stdout}}"},
		Path:    "{{step_0.stdout}}.txt",
		DstPath: "out/{{step_0.stdout}}",
		Command: "echo {{step_0.stdout}}",
	}

	ApplyToRequest(&req, results)

	if req.Args[1] != "value" {
		t.Errorf("Args[1] = %q", req.Args[1])
	}
	if req.Path != "value.txt" {
		t.Errorf("Path = %q", req.Path)
	}
	if req.DstPath != "out/value" {
		t.Errorf("DstPath = %q", req.DstPath)
	}
	if req.Command != "echo value" {
		t.Errorf("Command = %q", req.Command)
	}
}
