// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds the dependency-aware execution plan over a step
// sequence: resource effects per step, producer/consumer indices, dependency
// edges, cycle validation, topological order and parallel levels.
package graph

import (
	"fmt"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

// BuildResult is the outcome of graph construction.
type BuildResult struct {
	Graph    *Graph
	Errors   []string
	Warnings []string
}

// IsSuccess reports whether a usable graph was produced.
func (r BuildResult) IsSuccess() bool {
	return len(r.Errors) == 0 && r.Graph != nil
}

// Build constructs the dependency graph over a step sequence.
//
// Description:
//
//	Four phases. Node creation assigns positional ids step_i and extracts
//	per-step resource effects. Producer indexing builds the four inverted
//	indices. Edge emission runs in a fixed order: file-creation edges,
//	directory-creation edges, parent-directory edges, and finally
//	execution-order edges between adjacent conflicting pairs not yet
//	related. Validation rejects any cycle; no partial graph is returned in
//	that case.
//
// Inputs:
//
//	steps - The prepared, optimised step sequence.
//
// Outputs:
//
//	BuildResult - Graph plus collected errors and warnings.
func Build(steps []step.Step) BuildResult {
	var result BuildResult

	g := NewGraph()
	nodes := make([]*Node, 0, len(steps))

	// phase 1: nodes with effects
	for i, s := range steps {
		effect, warnings := ExtractEffect(s)
		for _, w := range warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("step_%d: %s", i, w))
		}

		n := &Node{
			ID:            fmt.Sprintf("step_%d", i),
			Step:          s,
			Effect:        effect,
			OriginalIndex: i,
			Status:        NodeStatusPending,
		}
		if err := g.AddNode(n); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		nodes = append(nodes, n)
	}

	if len(nodes) == 0 {
		result.Errors = append(result.Errors, "no valid nodes created")
		return result
	}

	// phase 2: producer/consumer indices
	mapping := buildResourceMapping(nodes)

	// phase 3: edge emission, insertion order matters for diagnostics
	for _, e := range fileCreationEdges(mapping) {
		g.AddEdge(e)
	}
	for _, e := range dirCreationEdges(mapping) {
		g.AddEdge(e)
	}
	for _, e := range parentDirEdges(nodes, mapping) {
		g.AddEdge(e)
	}
	for _, e := range executionOrderEdges(nodes, g) {
		g.AddEdge(e)
	}

	// phase 4: validation
	if cycle := detectCycle(g); cycle != nil {
		result.Errors = append(result.Errors, cycle.Error())
		return result
	}

	result.Graph = g
	return result
}
