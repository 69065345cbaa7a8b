// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package step

import (
	"path"
	"strings"
)

// ResolveDependencies inserts the preparation steps a step sequence omits.
//
// Description:
//
//	The sequence is walked once while tracking which directories and files
//	earlier steps have produced. A file-producing step whose destination
//	parent is not yet owned gets an auto-generated mkdir prepended, as does
//	a step declaring an untracked working directory. Auto-generated mkdirs
//	carry allow_failure because the directory may already exist on disk.
//
//	Original steps keep their relative order; preparation steps are only
//	ever inserted, never reordered.
//
// Inputs:
//
//	steps - The input sequence.
//	ctx - The evaluation context, used for guard-suppression checks.
//
// Outputs:
//
//	[]Step - The sequence with preparation steps inserted.
func ResolveDependencies(steps []Step, ctx *Context) []Step {
	resolved := make([]Step, 0, len(steps))
	existingDirs := make(map[string]bool)
	existingFiles := make(map[string]bool)

	for _, s := range steps {
		if shouldPrepare(s, ctx) {
			for _, prep := range preparationSteps(s, existingDirs) {
				resolved = append(resolved, prep)
				trackResources(prep, existingDirs, existingFiles)
			}
		}

		resolved = append(resolved, s)
		trackResources(s, existingDirs, existingFiles)
	}

	return resolved
}

// shouldPrepare decides whether preparation steps may be emitted for s.
//
// A guarded step might be skipped at runtime; when its resolved arguments
// contain obviously malformed paths (consecutive slashes, or a trailing
// "/.") the necessity of the preparation I/O cannot be established, so
// none is emitted. Unguarded steps always prepare.
func shouldPrepare(s Step, ctx *Context) bool {
	if s.When == "" {
		return true
	}
	for _, arg := range s.Cmd {
		resolved := Resolve(arg, ctx)
		if strings.Contains(resolved, "//") || strings.HasSuffix(resolved, "/.") {
			return false
		}
	}
	return true
}

// preparationSteps computes the mkdirs required before s runs.
func preparationSteps(s Step, existingDirs map[string]bool) []Step {
	var preps []Step

	var dst string
	switch {
	case s.Kind == KindTouch:
		dst = s.Cmd[0]
	case s.IsFileProducing() && len(s.Cmd) >= 2:
		dst = s.Cmd[1]
	}
	if dst != "" {
		parent := parentDir(dst)
		if parent != "." && parent != "/" && !existingDirs[parent] {
			preps = append(preps, autoMkdir(parent))
		}
	}

	if s.Cwd != "" && !existingDirs[s.Cwd] {
		preps = append(preps, autoMkdir(s.Cwd))
	}

	return preps
}

func autoMkdir(dir string) Step {
	mkdir, _ := New(KindMkdir, []string{dir})
	return mkdir.WithFlags(true, false).AsAutoGenerated()
}

// trackResources applies a step's filesystem effect to the tracking sets.
func trackResources(s Step, existingDirs, existingFiles map[string]bool) {
	switch s.Kind {
	case KindMkdir:
		existingDirs[s.Cmd[0]] = true

	case KindTouch:
		existingFiles[s.Cmd[0]] = true
		if parent := parentDir(s.Cmd[0]); parent != "." {
			existingDirs[parent] = true
		}

	case KindCopy, KindMove:
		if len(s.Cmd) >= 2 {
			dst := s.Cmd[1]
			existingFiles[dst] = true
			if parent := parentDir(dst); parent != "." {
				existingDirs[parent] = true
			}
		}

	case KindMoveTree:
		if len(s.Cmd) >= 2 {
			dst := s.Cmd[1]
			existingDirs[dst] = true
			if parent := parentDir(dst); parent != "." {
				existingDirs[parent] = true
			}
		}

	case KindRemove, KindRmTree:
		delete(existingFiles, s.Cmd[0])
		delete(existingDirs, s.Cmd[0])
	}
}

// parentDir returns the normalised parent directory of a path.
func parentDir(p string) string {
	return path.Dir(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// Optimize applies the post-walk optimisations: mkdir coalescing followed
// by copy/move deduplication. Both passes are idempotent.
func Optimize(steps []Step) []Step {
	return OptimizeCopySteps(OptimizeMkdirSteps(steps))
}

// OptimizeMkdirSteps coalesces consecutive mkdir runs.
//
// Description:
//
//	A run of adjacent mkdir steps sharing the same allow_failure and
//	show_output flags is replaced by its deduplicated, order-preserving
//	projection. Runs with differing flags are not merged.
func OptimizeMkdirSteps(steps []Step) []Step {
	if len(steps) == 0 {
		return steps
	}

	optimized := make([]Step, 0, len(steps))
	i := 0

	for i < len(steps) {
		s := steps[i]
		if s.Kind != KindMkdir {
			optimized = append(optimized, s)
			i++
			continue
		}

		// collect the run of flag-compatible mkdirs
		paths := []string{s.Cmd[0]}
		j := i + 1
		for j < len(steps) &&
			steps[j].Kind == KindMkdir &&
			steps[j].AllowFailure == s.AllowFailure &&
			steps[j].ShowOutput == s.ShowOutput {
			paths = append(paths, steps[j].Cmd[0])
			j++
		}

		seen := make(map[string]bool, len(paths))
		for _, p := range paths {
			if seen[p] {
				continue
			}
			seen[p] = true
			merged := s
			merged.Cmd = []string{p}
			optimized = append(optimized, merged)
		}

		i = j
	}

	return optimized
}

// OptimizeCopySteps removes duplicated copy/move operations.
//
// Description:
//
//	Operations repeating the same (kind, source, destination) triple keep a
//	single occurrence. When duplicates disagree on allow_failure the
//	stricter one wins: allow_failure=false replaces an earlier
//	allow_failure=true occurrence in place.
func OptimizeCopySteps(steps []Step) []Step {
	if len(steps) == 0 {
		return steps
	}

	type opKey struct {
		kind Kind
		src  string
		dst  string
	}

	optimized := make([]Step, 0, len(steps))
	seen := make(map[opKey]int) // key -> index into optimized

	for _, s := range steps {
		switch s.Kind {
		case KindCopy, KindMove, KindCopyTree, KindMoveTree:
			if len(s.Cmd) < 2 {
				optimized = append(optimized, s)
				continue
			}
			key := opKey{kind: s.Kind, src: s.Cmd[0], dst: s.Cmd[1]}
			if idx, dup := seen[key]; dup {
				if !s.AllowFailure && optimized[idx].AllowFailure {
					optimized[idx] = s
				}
				continue
			}
			seen[key] = len(optimized)
			optimized = append(optimized, s)

		default:
			optimized = append(optimized, s)
		}
	}

	return optimized
}
