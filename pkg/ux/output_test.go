// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

func withCapturedOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	oldOut := Out
	Out = &buf
	SetColorEnabled(false)
	defer func() { Out = oldOut }()

	fn()
	return buf.String()
}

func TestStatusIcon_Mapping(t *testing.T) {
	cases := map[string]Icon{
		"completed": IconSuccess,
		"failed":    IconError,
		"skipped":   IconSkipped,
		"running":   IconArrow,
		"pending":   IconPending,
		"anything":  IconPending,
	}
	for status, want := range cases {
		if got := StatusIcon(status); got != want {
			t.Errorf("StatusIcon(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestStatusf_PlainOutput(t *testing.T) {
	out := withCapturedOutput(t, func() {
		Statusf("completed", "step_0", "copied 1 file")
	})

	if !strings.Contains(out, "✓") || !strings.Contains(out, "step_0") {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(out, "copied 1 file") {
		t.Errorf("detail missing from %q", out)
	}
}

func TestPrintHelpers(t *testing.T) {
	out := withCapturedOutput(t, func() {
		Title("workflow test")
		Success("done")
		Warning("careful")
		Error("broken")
	})

	for _, want := range []string{"workflow test", "done", "careful", "broken", "✓", "⚠", "✗"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestIconRender_NoColorPassthrough(t *testing.T) {
	SetColorEnabled(false)
	if got := IconSuccess.Render(); got != string(IconSuccess) {
		t.Errorf("Render() = %q without color, want raw icon", got)
	}
}
