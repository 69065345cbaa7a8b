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
	"fmt"
	"strings"
)

// CycleError describes a circular dependency found during validation.
//
// Description:
//
//	Nodes holds the cycle path with the entry node repeated at the end
//	(A, B, A). Edges holds the participating dependency edges with their
//	kinds and resources, which is usually enough to see which resource
//	claim closed the loop.
type CycleError struct {
	Nodes []string
	Edges []Edge
}

// Error formats the cycle as a human-readable trace with a suggestion block.
func (e *CycleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "circular dependency detected: %s (length: %d)\n",
		strings.Join(e.Nodes, " -> "), len(e.Nodes)-1)

	b.WriteString("Dependency details in cycle:\n")
	for _, edge := range e.Edges {
		fmt.Fprintf(&b, "  %s -> %s (%s)", edge.From, edge.To, edge.Kind)
		if edge.Resource != "" {
			fmt.Fprintf(&b, " [%s]", edge.Resource)
		}
		if edge.Description != "" {
			fmt.Fprintf(&b, ": %s", edge.Description)
		}
		b.WriteByte('\n')
	}

	b.WriteString("Suggestion: break the cycle by removing one of the steps above,\n")
	b.WriteString("or by splitting the shared resource so that no step both produces\n")
	b.WriteString("and consumes it.")
	return b.String()
}

// visit colours for the DFS below.
type visitColour int

const (
	colourWhite visitColour = iota // unvisited
	colourGrey                     // on the recursion stack
	colourBlack                    // finished
)

// detectCycle runs a three-colour DFS over the graph.
//
// Outputs:
//
//	*CycleError - The first cycle found, or nil for an acyclic graph.
func detectCycle(g *Graph) *CycleError {
	colours := make(map[string]visitColour, len(g.order))
	var stack []string

	var dfs func(id string) *CycleError
	dfs = func(id string) *CycleError {
		colours[id] = colourGrey
		stack = append(stack, id)

		for _, next := range g.forward[id] {
			switch colours[next] {
			case colourWhite:
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			case colourGrey:
				// the edge id->next closes the cycle; reconstruct the
				// chain from the recursion stack
				start := 0
				for i, n := range stack {
					if n == next {
						start = i
						break
					}
				}
				cycleNodes := append(append([]string(nil), stack[start:]...), next)
				return &CycleError{
					Nodes: cycleNodes,
					Edges: cycleEdges(g, cycleNodes),
				}
			}
		}

		stack = stack[:len(stack)-1]
		colours[id] = colourBlack
		return nil
	}

	for _, id := range g.order {
		if colours[id] == colourWhite {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// cycleEdges collects the graph edges lying on the cycle path.
func cycleEdges(g *Graph, cycleNodes []string) []Edge {
	onCycle := make(map[[2]string]bool, len(cycleNodes))
	for i := 0; i+1 < len(cycleNodes); i++ {
		onCycle[[2]string{cycleNodes[i], cycleNodes[i+1]}] = true
	}

	var edges []Edge
	for _, e := range g.edges {
		if onCycle[[2]string{e.From, e.To}] {
			edges = append(edges, e)
		}
	}
	return edges
}
