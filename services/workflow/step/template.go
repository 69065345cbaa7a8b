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
	"strings"
)

// Resolve substitutes {name} placeholders in a template string.
//
// Description:
//
//	Every literal occurrence of {name} is replaced with the context value
//	of that name. Unknown names pass through unchanged. The substitution is
//	a single pass over the context keys: a resolved value is never fed back
//	into resolution, so a string containing no {...} token is a fixed point.
//
// Inputs:
//
//	template - The template string.
//	ctx - The evaluation context. Must not be nil.
//
// Outputs:
//
//	string - The resolved string.
func Resolve(template string, ctx *Context) string {
	if !strings.Contains(template, "{") {
		return template
	}

	values := ctx.FormatMap()
	pairs := make([]string, 0, 2*len(values))
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// ResolveValue coerces an arbitrary value to string and resolves it.
// nil becomes the empty string; non-strings use their default string form.
func ResolveValue(v any, ctx *Context) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return Resolve(s, ctx)
}

// ExpandFilePatterns substitutes {pattern_name} tokens against the
// context's file-pattern table.
//
// Description:
//
//	The first pattern of the named list is used. For tree kinds (movetree,
//	rmtree, copytree) a pattern containing "/" contributes only its
//	directory prefix: "test/*.in" expands to "test". This distinguishes
//	operating on the files inside a directory from operating on the
//	directory itself. After pattern expansion the result goes through the
//	ordinary resolver.
//
// Inputs:
//
//	template - The template string.
//	ctx - The evaluation context.
//	kind - The step kind, used for the tree-prefix rule.
//
// Outputs:
//
//	string - The expanded, resolved string.
func ExpandFilePatterns(template string, ctx *Context, kind Kind) string {
	if len(ctx.FilePatterns) == 0 {
		return Resolve(template, ctx)
	}

	for name, patterns := range ctx.FilePatterns {
		placeholder := "{" + name + "}"
		if !strings.Contains(template, placeholder) || len(patterns) == 0 {
			continue
		}
		pattern := patterns[0]

		if IsTreeOp(kind) && strings.Contains(pattern, "/") {
			dir := pattern[:strings.Index(pattern, "/")]
			return Resolve(strings.ReplaceAll(template, placeholder, dir), ctx)
		}

		return Resolve(strings.ReplaceAll(template, placeholder, pattern), ctx)
	}

	return Resolve(template, ctx)
}
