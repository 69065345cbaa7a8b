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
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

func TestBuild_MkdirThenCopy(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "out"),
		mustStep(t, step.KindCopy, "src.txt", "out/result.txt"),
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	g := result.Graph
	assert.Equal(t, 2, g.NodeCount())

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "step_0", edges[0].From)
	assert.Equal(t, "step_1", edges[0].To)
	assert.Equal(t, DepDirectoryCreation, edges[0].Kind)
	assert.Equal(t, "out", edges[0].Resource)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"step_0", "step_1"}, order)
}

func TestBuild_FileCreationEdge(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindTouch, "data.txt"),
		mustStep(t, step.KindCopy, "data.txt", "out.txt"),
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	edges := result.Graph.Edges()
	require.NotEmpty(t, edges)
	assert.Equal(t, DepFileCreation, edges[0].Kind)
	assert.Equal(t, "data.txt", edges[0].Resource)
}

func TestBuild_SelfCopyEmitsNoSelfEdge(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindCopy, "same.txt", "same.txt"),
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	g := result.Graph
	n, ok := g.Node("step_0")
	require.True(t, ok)
	assert.True(t, n.Effect.CreatesFiles.Has("same.txt"))
	assert.True(t, n.Effect.ReadsFiles.Has("same.txt"))
	assert.Empty(t, g.Edges())
}

func TestBuild_ParentDirectoryEdgeThroughAncestor(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "a"),
		mustStep(t, step.KindTouch, "a/b/c.txt"),
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	// mkdir a is an ancestor creator of a/b, the touch's parent
	var found bool
	for _, e := range result.Graph.Edges() {
		if e.From == "step_0" && e.To == "step_1" && e.Kind == DepDirectoryCreation {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuild_ExecutionOrderEdgeOnConflict(t *testing.T) {
	// both steps create the same file but neither reads it: only the
	// adjacency conflict rule can order them
	steps := []step.Step{
		mustStep(t, step.KindTouch, "x.txt"),
		mustStep(t, step.KindTouch, "x.txt"),
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	edges := result.Graph.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, DepExecutionOrder, edges[0].Kind)
	assert.Equal(t, "step_0", edges[0].From)
	assert.Equal(t, "step_1", edges[0].To)
}

func TestBuild_NoEdgeBetweenIndependentSteps(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "a"),
		mustStep(t, step.KindMkdir, "b"),
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	assert.Empty(t, result.Graph.Edges())
}

func TestBuild_EdgesPointForward(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "a"),
		mustStep(t, step.KindMkdir, "b"),
		mustStep(t, step.KindTouch, "a/1.txt"),
		mustStep(t, step.KindTouch, "b/1.txt"),
		mustStep(t, step.KindCopy, "a/1.txt", "b/2.txt"),
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	g := result.Graph
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		assert.Less(t, from.OriginalIndex, to.OriginalIndex,
			"edge %s -> %s must point forward", e.From, e.To)
	}
}

func TestBuild_EdgesDeduplicatedOnPair(t *testing.T) {
	// creator produces two files both read downstream: a single edge pair
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "out"),
		mustStep(t, step.KindCopy, "s1", "out/a"),
		mustStep(t, step.KindCopy, "out/a", "out/b"),
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	seen := make(map[string]bool)
	for _, e := range result.Graph.Edges() {
		key := e.From + "->" + e.To
		assert.False(t, seen[key], "duplicate edge %s", key)
		seen[key] = true
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	result := Build(nil)

	assert.False(t, result.IsSuccess())
	assert.NotEmpty(t, result.Errors)
}

func TestBuild_LargeChainStaysLinear(t *testing.T) {
	var steps []step.Step
	steps = append(steps, mustStep(t, step.KindMkdir, "d"))
	for i := 0; i < 50; i++ {
		steps = append(steps, mustStep(t, step.KindTouch, "d/f"+strconv.Itoa(i)))
	}

	result := Build(steps)

	require.True(t, result.IsSuccess())
	order, err := result.Graph.TopologicalOrder()
	require.NoError(t, err)
	assert.Len(t, order, 51)
	assert.Equal(t, "step_0", order[0])
}

func TestIsParentDirectory(t *testing.T) {
	cases := []struct {
		parent string
		child  string
		want   bool
	}{
		{"a", "a/b", true},
		{"a", "a/b/c", true},
		{"a", "a", true},
		{"a", "ab", false},
		{"a/b", "a", false},
		{"/x", "/x/y", true},
		{"/x", "x/y", false}, // mixed anchors: string rule, no "/x/" prefix
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, isParentDirectory(tc.parent, tc.child),
			"parent=%s child=%s", tc.parent, tc.child)
	}
}
