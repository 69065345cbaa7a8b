// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

func mustStep(t *testing.T, kind step.Kind, cmd ...string) step.Step {
	t.Helper()
	s, err := step.New(kind, cmd)
	require.NoError(t, err)
	return s
}

func setOf(s PathSet) []string {
	return sortedSet(s)
}

func TestExtractEffect_Mkdir(t *testing.T) {
	e, warnings := ExtractEffect(mustStep(t, step.KindMkdir, "out"))

	assert.Empty(t, warnings)
	assert.Equal(t, []string{"out"}, setOf(e.CreatesDirs))
	assert.Empty(t, e.CreatesFiles)
	assert.Empty(t, e.ReadsFiles)
	assert.Empty(t, e.RequiresDirs)
}

func TestExtractEffect_Touch(t *testing.T) {
	e, _ := ExtractEffect(mustStep(t, step.KindTouch, "a/b.txt"))

	assert.Equal(t, []string{"a/b.txt"}, setOf(e.CreatesFiles))
	assert.Equal(t, []string{"a"}, setOf(e.RequiresDirs))
}

func TestExtractEffect_TouchInCurrentDir(t *testing.T) {
	e, _ := ExtractEffect(mustStep(t, step.KindTouch, "b.txt"))

	assert.Empty(t, e.RequiresDirs)
}

func TestExtractEffect_CopyAndMove(t *testing.T) {
	for _, kind := range []step.Kind{step.KindCopy, step.KindMove} {
		e, _ := ExtractEffect(mustStep(t, kind, "src.txt", "out/dst.txt"))

		assert.Equal(t, []string{"out/dst.txt"}, setOf(e.CreatesFiles), "kind %s", kind)
		assert.Equal(t, []string{"src.txt"}, setOf(e.ReadsFiles), "kind %s", kind)
		assert.Equal(t, []string{"out"}, setOf(e.RequiresDirs), "kind %s", kind)
	}
}

func TestExtractEffect_MoveTree(t *testing.T) {
	e, _ := ExtractEffect(mustStep(t, step.KindMoveTree, "src", "dst"))

	assert.Equal(t, []string{"dst"}, setOf(e.CreatesDirs))
	assert.Equal(t, []string{"src"}, setOf(e.ReadsFiles))
	assert.Empty(t, e.RequiresDirs)
}

func TestExtractEffect_RemoveReadsTarget(t *testing.T) {
	for _, kind := range []step.Kind{step.KindRemove, step.KindRmTree} {
		e, _ := ExtractEffect(mustStep(t, kind, "victim"))

		assert.Equal(t, []string{"victim"}, setOf(e.ReadsFiles), "kind %s", kind)
		assert.Empty(t, e.CreatesFiles)
	}
}

func TestExtractEffect_BuildRequiresDirectory(t *testing.T) {
	e, _ := ExtractEffect(mustStep(t, step.KindBuild, "proj"))
	assert.Equal(t, []string{"proj"}, setOf(e.RequiresDirs))
}

func TestExtractEffect_TestReadsTargetFile(t *testing.T) {
	e, _ := ExtractEffect(mustStep(t, step.KindTest, "run", "cur/main.py"))

	assert.Equal(t, []string{"cur/main.py"}, setOf(e.ReadsFiles))
	assert.Equal(t, []string{"cur"}, setOf(e.RequiresDirs))
}

func TestExtractEffect_ExecutionKindsRequireWorkspace(t *testing.T) {
	for _, kind := range []step.Kind{step.KindShell, step.KindPython, step.KindDockerExec} {
		var s step.Step
		if kind == step.KindDockerExec {
			s = mustStep(t, kind, "container", "ls")
		} else {
			s = mustStep(t, kind, "echo")
		}
		e, _ := ExtractEffect(s)
		assert.Equal(t, []string{"workspace"}, setOf(e.RequiresDirs), "kind %s", kind)
	}
}

func TestExtractEffect_PathNormalisation(t *testing.T) {
	e, _ := ExtractEffect(mustStep(t, step.KindCopy, "./src.txt", "out/sub/../dst.txt"))

	assert.Equal(t, []string{"out/dst.txt"}, setOf(e.CreatesFiles))
	assert.Equal(t, []string{"src.txt"}, setOf(e.ReadsFiles))
}
