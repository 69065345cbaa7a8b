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
	"strings"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

// workspaceDir is the directory execution steps implicitly require.
const workspaceDir = "./workspace"

// normalizePath canonicalises a path for set membership: forward slashes,
// no trailing slash, "." segments cleaned.
func normalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// normalizedParent returns the cleaned parent directory of p.
func normalizedParent(p string) string {
	return path.Dir(normalizePath(p))
}

// ExtractEffect derives a step's resource footprint from its kind and
// arguments.
//
// Description:
//
//	The effect is deterministic: kind plus argument vector fully decide
//	the four sets. A step missing required arguments yields an empty
//	effect and a warning; arity violations proper were already rejected
//	by the step validator.
//
// Outputs:
//
//	Effect - The resource footprint with normalised paths.
//	[]string - Warnings for degenerate argument vectors.
func ExtractEffect(s step.Step) (Effect, []string) {
	e := emptyEffect()
	var warnings []string

	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	switch s.Kind {
	case step.KindMkdir:
		if len(s.Cmd) < 1 {
			warn("mkdir step missing path argument")
			break
		}
		e.CreatesDirs.Add(normalizePath(s.Cmd[0]))

	case step.KindTouch:
		if len(s.Cmd) < 1 {
			warn("touch step missing path argument")
			break
		}
		p := normalizePath(s.Cmd[0])
		e.CreatesFiles.Add(p)
		if parent := path.Dir(p); parent != "." {
			e.RequiresDirs.Add(parent)
		}

	case step.KindCopy, step.KindMove:
		if len(s.Cmd) < 2 {
			warn("%s step missing source/destination arguments", s.Kind)
			break
		}
		src := normalizePath(s.Cmd[0])
		dst := normalizePath(s.Cmd[1])
		e.CreatesFiles.Add(dst)
		e.ReadsFiles.Add(src)
		if parent := path.Dir(dst); parent != "." {
			e.RequiresDirs.Add(parent)
		}

	case step.KindMoveTree, step.KindCopyTree:
		if len(s.Cmd) < 2 {
			warn("%s step missing source/destination arguments", s.Kind)
			break
		}
		e.CreatesDirs.Add(normalizePath(s.Cmd[1]))
		e.ReadsFiles.Add(normalizePath(s.Cmd[0]))

	case step.KindRemove, step.KindRmTree:
		if len(s.Cmd) < 1 {
			warn("%s step missing path argument", s.Kind)
			break
		}
		e.ReadsFiles.Add(normalizePath(s.Cmd[0]))

	case step.KindBuild:
		dir := workspaceDir
		if len(s.Cmd) >= 1 && s.Cmd[0] != "" {
			dir = s.Cmd[0]
		}
		e.RequiresDirs.Add(normalizePath(dir))

	case step.KindTest:
		if len(s.Cmd) < 2 {
			e.RequiresDirs.Add(normalizePath(workspaceDir))
			break
		}
		target := normalizePath(s.Cmd[1])
		e.ReadsFiles.Add(target)
		if parent := path.Dir(target); parent != "." {
			e.RequiresDirs.Add(parent)
		}

	case step.KindShell, step.KindPython,
		step.KindDockerExec, step.KindDockerCp, step.KindDockerRun,
		step.KindDockerBuild, step.KindDockerCommit, step.KindDockerRm,
		step.KindDockerRmi:
		e.RequiresDirs.Add(normalizePath(workspaceDir))
	}

	// oj, run, chmod and result carry no statically derivable footprint

	return e, warnings
}
