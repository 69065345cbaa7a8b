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
	"errors"
	"sort"
)

// ErrNoProgress is returned when the level computation cannot make progress
// on an acyclic graph. That is a builder bug, not a user error.
var ErrNoProgress = errors.New("no progress possible: deadlock or missing dependency")

// TopologicalOrder computes an execution order over the graph.
//
// Description:
//
//	Kahn's algorithm over the adjacency list. Ready nodes drain through a
//	queue; ties are broken by the node's original index ascending, so the
//	order is deterministic and every dependency edge points forward.
//
// Outputs:
//
//	[]string - Node ids in execution order, length == NodeCount.
//	error - ErrNoProgress if the graph has a cycle (callers validate first).
func (g *Graph) TopologicalOrder() ([]string, error) {
	inDegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		inDegree[id] = len(g.reverse[id])
	}

	ready := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	g.sortByOriginalIndex(ready)

	order := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false
		for _, next := range g.forward[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
				released = true
			}
		}
		if released {
			g.sortByOriginalIndex(ready)
		}
	}

	if len(order) != len(g.order) {
		return nil, ErrNoProgress
	}
	return order, nil
}

// ParallelLevels partitions the nodes into executable antichains.
//
// Description:
//
//	Greedy partition over the completed set: each level collects every
//	remaining node whose predecessors have all completed. Nodes within a
//	level are pairwise independent; level k+1 may only start after level k
//	has drained.
//
// Outputs:
//
//	[][]string - Levels in execution order, each sorted by original index.
//	error - ErrNoProgress if a non-empty remainder has no ready node.
func (g *Graph) ParallelLevels() ([][]string, error) {
	completed := make(map[string]bool, len(g.order))
	remaining := make(map[string]bool, len(g.order))
	for _, id := range g.order {
		remaining[id] = true
	}

	var levels [][]string
	for len(remaining) > 0 {
		var level []string
		for _, id := range g.order {
			if !remaining[id] {
				continue
			}
			allDone := true
			for _, dep := range g.reverse[id] {
				if !completed[dep] {
					allDone = false
					break
				}
			}
			if allDone {
				level = append(level, id)
			}
		}

		if len(level) == 0 {
			return nil, ErrNoProgress
		}

		for _, id := range level {
			delete(remaining, id)
			completed[id] = true
		}
		levels = append(levels, level)
	}

	return levels, nil
}

func (g *Graph) sortByOriginalIndex(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return g.nodes[ids[i]].OriginalIndex < g.nodes[ids[j]].OriginalIndex
	})
}
