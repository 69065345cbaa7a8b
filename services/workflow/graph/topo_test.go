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

func TestTopologicalOrder_LengthMatchesNodeCount(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "a"),
		mustStep(t, step.KindTouch, "a/1"),
		mustStep(t, step.KindCopy, "a/1", "a/2"),
	}
	result := Build(steps)
	require.True(t, result.IsSuccess())

	order, err := result.Graph.TopologicalOrder()

	require.NoError(t, err)
	assert.Len(t, order, result.Graph.NodeCount())
}

func TestTopologicalOrder_TiesBrokenByOriginalIndex(t *testing.T) {
	// four mutually independent steps: order must be the input order
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "d"),
		mustStep(t, step.KindMkdir, "c"),
		mustStep(t, step.KindMkdir, "b"),
		mustStep(t, step.KindMkdir, "a"),
	}
	result := Build(steps)
	require.True(t, result.IsSuccess())

	order, err := result.Graph.TopologicalOrder()

	require.NoError(t, err)
	assert.Equal(t, []string{"step_0", "step_1", "step_2", "step_3"}, order)
}

func TestParallelLevels_DiamondShape(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "a"),
		mustStep(t, step.KindMkdir, "b"),
		mustStep(t, step.KindTouch, "a/1"),
		mustStep(t, step.KindTouch, "b/1"),
	}
	result := Build(steps)
	require.True(t, result.IsSuccess())

	levels, err := result.Graph.ParallelLevels()

	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, []string{"step_0", "step_1"}, levels[0])
	assert.Equal(t, []string{"step_2", "step_3"}, levels[1])
}

func TestParallelLevels_ChainIsOneNodePerLevel(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindTouch, "x"),
		mustStep(t, step.KindCopy, "x", "y"),
		mustStep(t, step.KindCopy, "y", "z"),
	}
	result := Build(steps)
	require.True(t, result.IsSuccess())

	levels, err := result.Graph.ParallelLevels()

	require.NoError(t, err)
	require.Len(t, levels, 3)
	for i, level := range levels {
		assert.Len(t, level, 1, "level %d", i)
	}
}

func TestParallelLevels_CoverEveryNodeOnce(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindMkdir, "a"),
		mustStep(t, step.KindTouch, "a/1"),
		mustStep(t, step.KindMkdir, "b"),
		mustStep(t, step.KindShell, "echo"),
	}
	result := Build(steps)
	require.True(t, result.IsSuccess())

	levels, err := result.Graph.ParallelLevels()
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, level := range levels {
		for _, id := range level {
			seen[id]++
		}
	}
	assert.Len(t, seen, result.Graph.NodeCount())
	for id, count := range seen {
		assert.Equal(t, 1, count, "node %s", id)
	}
}

func TestParallelLevels_DeadlockedGraphErrors(t *testing.T) {
	g := cyclicGraph(t)

	_, err := g.ParallelLevels()

	assert.ErrorIs(t, err, ErrNoProgress)
}

func TestTransitiveDependents(t *testing.T) {
	steps := []step.Step{
		mustStep(t, step.KindTouch, "x"),
		mustStep(t, step.KindCopy, "x", "y"),
		mustStep(t, step.KindCopy, "y", "z"),
		mustStep(t, step.KindMkdir, "unrelated"),
	}
	result := Build(steps)
	require.True(t, result.IsSuccess())

	deps := result.Graph.TransitiveDependents("step_0")

	assert.ElementsMatch(t, []string{"step_1", "step_2"}, deps)
}
