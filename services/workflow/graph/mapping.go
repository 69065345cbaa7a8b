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

// indexedNode pairs a node with its original position; the index carries
// the ordering constraint used during edge emission.
type indexedNode struct {
	index int
	node  *Node
}

// resourceMapping holds the four inverted indices from resource path to the
// ordered list of nodes touching it. Building these once keeps dependency
// emission linear in the number of edges instead of quadratic in nodes.
type resourceMapping struct {
	fileCreators map[string][]indexedNode
	dirCreators  map[string][]indexedNode
	fileReaders  map[string][]indexedNode
	dirRequirers map[string][]indexedNode
}

// buildResourceMapping indexes producers and consumers over the node list.
// The input order must be the original step order; list entries keep it.
func buildResourceMapping(nodes []*Node) *resourceMapping {
	m := &resourceMapping{
		fileCreators: make(map[string][]indexedNode),
		dirCreators:  make(map[string][]indexedNode),
		fileReaders:  make(map[string][]indexedNode),
		dirRequirers: make(map[string][]indexedNode),
	}

	for i, n := range nodes {
		entry := indexedNode{index: i, node: n}
		for p := range n.Effect.CreatesFiles {
			m.fileCreators[p] = append(m.fileCreators[p], entry)
		}
		for p := range n.Effect.CreatesDirs {
			m.dirCreators[p] = append(m.dirCreators[p], entry)
		}
		for p := range n.Effect.ReadsFiles {
			m.fileReaders[p] = append(m.fileReaders[p], entry)
		}
		for p := range n.Effect.RequiresDirs {
			m.dirRequirers[p] = append(m.dirRequirers[p], entry)
		}
	}

	return m
}
