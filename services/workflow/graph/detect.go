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
	"path"
	"sort"
	"strings"
)

// fileCreationEdges orders each file's creators before its later readers.
func fileCreationEdges(m *resourceMapping) []Edge {
	var edges []Edge

	for _, filePath := range sortedKeys(m.fileCreators) {
		readers, ok := m.fileReaders[filePath]
		if !ok {
			continue
		}
		for _, creator := range m.fileCreators[filePath] {
			for _, reader := range readers {
				if creator.index < reader.index {
					edges = append(edges, Edge{
						From:        creator.node.ID,
						To:          reader.node.ID,
						Kind:        DepFileCreation,
						Resource:    filePath,
						Description: fmt.Sprintf("File %s must be created before being read", filePath),
					})
				}
			}
		}
	}

	return edges
}

// dirCreationEdges orders each directory's creators before its later users.
func dirCreationEdges(m *resourceMapping) []Edge {
	var edges []Edge

	for _, dirPath := range sortedKeys(m.dirCreators) {
		requirers, ok := m.dirRequirers[dirPath]
		if !ok {
			continue
		}
		for _, creator := range m.dirCreators[dirPath] {
			for _, requirer := range requirers {
				if creator.index < requirer.index {
					edges = append(edges, Edge{
						From:        creator.node.ID,
						To:          requirer.node.ID,
						Kind:        DepDirectoryCreation,
						Resource:    dirPath,
						Description: fmt.Sprintf("Directory %s must be created before being used", dirPath),
					})
				}
			}
		}
	}

	return edges
}

// parentDirEdges ties file-creating nodes to the earlier creators of their
// destination parent directories, including creators of ancestors.
func parentDirEdges(nodes []*Node, m *resourceMapping) []Edge {
	var edges []Edge

	for i, n := range nodes {
		if len(n.Effect.CreatesFiles) == 0 {
			continue
		}

		parents := NewPathSet()
		for f := range n.Effect.CreatesFiles {
			if parent := path.Dir(f); parent != "." && parent != "/" {
				parents.Add(parent)
			}
		}

		for _, parent := range sortedSet(parents) {
			// one edge per (parent, consumer) pair is enough
			linked := false
			for _, dirPath := range sortedKeys(m.dirCreators) {
				if linked {
					break
				}
				if dirPath != parent && !isParentDirectory(dirPath, parent) {
					continue
				}
				for _, creator := range m.dirCreators[dirPath] {
					if creator.index < i {
						edges = append(edges, Edge{
							From:        creator.node.ID,
							To:          n.ID,
							Kind:        DepDirectoryCreation,
							Resource:    dirPath,
							Description: fmt.Sprintf("Directory %s must exist for file creation", dirPath),
						})
						linked = true
						break
					}
				}
			}
		}
	}

	return edges
}

// executionOrderEdges preserves original order between adjacent nodes whose
// effects conflict and that are not yet related by an edge either way.
func executionOrderEdges(nodes []*Node, g *Graph) []Edge {
	var edges []Edge

	for i := 0; i+1 < len(nodes); i++ {
		current, next := nodes[i], nodes[i+1]
		if g.HasEdgeBetween(current.ID, next.ID) {
			continue
		}
		if current.Effect.conflictsWith(next.Effect) {
			edges = append(edges, Edge{
				From:        current.ID,
				To:          next.ID,
				Kind:        DepExecutionOrder,
				Description: "Preserve original execution order due to resource conflict",
			})
		}
	}

	return edges
}

// isParentDirectory reports whether parent is an ancestor of child on the
// path tree. Lexical cleaning is attempted first; paths without a common
// root anchor fall back to the string-prefix rule.
func isParentDirectory(parent, child string) bool {
	p := normalizePath(parent)
	c := normalizePath(child)

	if p == c {
		return true
	}
	if strings.HasPrefix(p, "/") == strings.HasPrefix(c, "/") {
		return strings.HasPrefix(c, p+"/")
	}
	// mixed absolute/relative: resolution impossible, string rule applies
	return c == p || strings.HasPrefix(c, p+"/")
}

// sortedKeys returns the map keys in lexical order so edge emission is
// deterministic across runs.
func sortedKeys(m map[string][]indexedNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(s PathSet) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
