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
	"fmt"
)

// Record is a declarative step definition as it arrives from a workflow
// definition file: a string-keyed map with a required "type" and "cmd".
type Record = map[string]any

// GenerateResult carries the steps produced from a record sequence plus the
// errors and warnings collected along the way.
type GenerateResult struct {
	Steps    []Step
	Errors   []string
	Warnings []string
}

// IsSuccess reports whether generation produced no errors.
func (r GenerateResult) IsSuccess() bool {
	return len(r.Errors) == 0
}

// Generate converts declarative records into validated steps.
//
// Description:
//
//	Each record is parsed independently: a failing record contributes an
//	error and is skipped, subsequent records are still attempted. Command
//	arguments are resolved against the context; for file-operation kinds
//	with at least two arguments the first two additionally receive
//	file-pattern expansion.
//
// Inputs:
//
//	records - The declarative step records.
//	ctx - The evaluation context. Must not be nil.
//
// Outputs:
//
//	GenerateResult - Steps plus collected errors/warnings.
func Generate(records []Record, ctx *Context) GenerateResult {
	var result GenerateResult

	for i, record := range records {
		s, err := fromRecord(record, ctx)
		if err != nil {
			result.Errors = append(result.Errors, (&StepError{Index: i, Err: err}).Error())
			continue
		}
		result.Steps = append(result.Steps, s)
	}

	return result
}

// fromRecord parses a single declarative record.
func fromRecord(record Record, ctx *Context) (Step, error) {
	rawType, ok := record["type"]
	if !ok {
		return Step{}, fmt.Errorf("%w: missing 'type' field", ErrInvalidStep)
	}
	typeStr, ok := rawType.(string)
	if !ok {
		return Step{}, fmt.Errorf("%w: 'type' must be a string", ErrInvalidStep)
	}
	kind, err := ParseKind(typeStr)
	if err != nil {
		return Step{}, err
	}

	rawCmd, ok := record["cmd"].([]any)
	if !ok {
		if strCmd, isStrs := record["cmd"].([]string); isStrs {
			rawCmd = make([]any, len(strCmd))
			for i, s := range strCmd {
				rawCmd[i] = s
			}
		} else {
			return Step{}, fmt.Errorf("%w: 'cmd' must be a list", ErrInvalidStep)
		}
	}

	cmd := resolveCmd(rawCmd, ctx, kind)

	s, err := New(kind, cmd)
	if err != nil {
		return Step{}, err
	}

	s = s.WithFlags(boolField(record, "allow_failure"), boolField(record, "show_output"))
	if cwd, ok := record["cwd"].(string); ok && cwd != "" {
		s = s.WithCwd(Resolve(cwd, ctx))
	}
	if when, ok := record["when"].(string); ok {
		// stored unresolved: guards are evaluated against the live
		// filesystem immediately before the step runs
		s = s.WithWhen(when)
	}
	if name, ok := record["name"].(string); ok {
		s = s.WithName(Resolve(name, ctx))
	}
	if env, ok := record["force_env_type"].(string); ok {
		s.ForceEnvType = env
	}
	if workers, ok := intField(record, "max_workers"); ok && workers >= 1 {
		s.MaxWorkers = workers
	}

	return s, nil
}

// resolveCmd resolves every argument; the first two arguments of file-op
// kinds with (src, dst) shape additionally receive pattern expansion.
func resolveCmd(rawCmd []any, ctx *Context, kind Kind) []string {
	cmd := make([]string, 0, len(rawCmd))

	patternExpanded := 0
	switch kind {
	case KindCopy, KindMove, KindMoveTree, KindCopyTree:
		if len(rawCmd) >= 2 {
			patternExpanded = 2
		}
	}

	for i, raw := range rawCmd {
		if i < patternExpanded {
			if s, ok := raw.(string); ok {
				cmd = append(cmd, ExpandFilePatterns(s, ctx, kind))
				continue
			}
		}
		cmd = append(cmd, ResolveValue(raw, ctx))
	}

	return cmd
}

func boolField(record Record, key string) bool {
	v, _ := record[key].(bool)
	return v
}

func intField(record Record, key string) (int, bool) {
	switch v := record[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
