// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// file paths or subprocess calls. Using these validators prevents injection
// attacks (command injection, path traversal).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches valid contest and problem identifiers.
// Allows: lowercase letters, digits, underscores, hyphens.
// Max length: 64 characters (covers every judge's naming scheme).
var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]{0,63}$`)

// ValidateIdentifier validates a contest or problem identifier before it is
// interpolated into workspace paths.
//
// Valid identifiers:
//   - 1-64 characters
//   - Lowercase letters a-z
//   - Digits 0-9
//   - Underscores and hyphens after the first character
//
// Returns an error if the identifier is invalid.
//
// Example:
//
//	if err := validation.ValidateIdentifier(contest); err != nil {
//	    return fmt.Errorf("invalid contest: %w", err)
//	}
//	// Safe to use in a workspace path
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("identifier %q must not contain path separators", id)
	}

	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier format: %q (must be 1-64 lowercase alphanumeric chars, underscores, or hyphens)", id)
	}

	return nil
}

// ValidateIdentifiers validates multiple identifiers.
// Returns an error listing all invalid identifiers if any fail validation.
func ValidateIdentifiers(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateIdentifier(id); err != nil {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %s", strings.Join(invalid, ", "))
	}
	return nil
}
