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

import "strings"

// Context is the evaluation environment for step generation.
//
// Description:
//
//	Context carries the named string values the template resolver consults,
//	plus the file-pattern table. It is immutable; FormatMap materialises the
//	flat key->value view used for substitution.
type Context struct {
	ContestName         string
	ProblemName         string
	Language            string
	EnvType             string
	CommandType         string
	WorkspacePath       string
	ContestCurrentPath  string
	ContestStockPath    string
	ContestTemplatePath string
	ContestTempPath     string
	SourceFileName      string
	LanguageID          string
	RunCommand          string

	// FilePatterns maps a pattern name to an ordered list of glob patterns,
	// e.g. "test_files" -> ["test/*.in", "test/*.out"].
	FilePatterns map[string][]string
}

// FormatMap returns the flat substitution dictionary.
//
// Description:
//
//	Every context field appears under its snake_case key. language_name is
//	an alias of language kept for older workflow definitions. File patterns
//	are joined with commas so simple templates can still reference them;
//	ExpandFilePatterns handles the structured single-pattern form.
func (c *Context) FormatMap() map[string]string {
	m := map[string]string{
		"contest_name":          c.ContestName,
		"problem_name":          c.ProblemName,
		"language":              c.Language,
		"language_name":         c.Language,
		"env_type":              c.EnvType,
		"command_type":          c.CommandType,
		"workspace_path":        c.WorkspacePath,
		"contest_current_path":  c.ContestCurrentPath,
		"contest_stock_path":    c.ContestStockPath,
		"contest_template_path": c.ContestTemplatePath,
		"contest_temp_path":     c.ContestTempPath,
		"source_file_name":      c.SourceFileName,
		"language_id":           c.LanguageID,
		"run_command":           c.RunCommand,
	}

	for name, patterns := range c.FilePatterns {
		m[name] = strings.Join(patterns, ",")
	}

	return m
}
