// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package exec

import (
	"regexp"

	"github.com/sugipamo/project-cph/services/workflow/driver"
)

// Placeholder forms: {{step_X.result.Y}} and {{step_X.Y}}. The longer form
// is tried first so "result" is not mistaken for a field name.
var (
	resultPlaceholder = regexp.MustCompile(`\{\{step_(\w+)\.result\.(\w+)\}\}`)
	fieldPlaceholder  = regexp.MustCompile(`\{\{step_(\w+)\.(\w+)\}\}`)
)

// SubstitutePlaceholders rewrites result placeholders in a string.
//
// Description:
//
//	Occurrences of {{step_X.result.Y}} and {{step_X.Y}} are replaced with
//	field Y of the already-recorded result of node step_X. Replacement is
//	purely textual. Unknown step ids or field names leave the placeholder
//	intact so a later validation pass can flag them.
//
// Inputs:
//
//	text - The text to rewrite.
//	results - Recorded results keyed by node id (step_0, step_1, ...).
//
// Outputs:
//
//	string - The rewritten text.
func SubstitutePlaceholders(text string, results map[string]*driver.Result) string {
	replace := func(re *regexp.Regexp, s string) string {
		return re.ReplaceAllStringFunc(s, func(match string) string {
			groups := re.FindStringSubmatch(match)
			stepID, field := groups[1], groups[2]

			result, ok := results["step_"+stepID]
			if !ok {
				return match
			}
			value, known := result.Field(field)
			if !known {
				return match
			}
			return value
		})
	}

	text = replace(resultPlaceholder, text)
	text = replace(fieldPlaceholder, text)
	return text
}

// ApplyToRequest rewrites the four substitution surfaces of a request:
// the argument vector, Path, DstPath and Command.
func ApplyToRequest(req *driver.Request, results map[string]*driver.Result) {
	for i, arg := range req.Args {
		req.Args[i] = SubstitutePlaceholders(arg, results)
	}
	if req.Path != "" {
		req.Path = SubstitutePlaceholders(req.Path, results)
	}
	if req.DstPath != "" {
		req.DstPath = SubstitutePlaceholders(req.DstPath, results)
	}
	if req.Command != "" {
		req.Command = SubstitutePlaceholders(req.Command, results)
	}
}
