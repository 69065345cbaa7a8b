// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import "testing"

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"abc300", "a", "typical90", "abc300_ex", "arc-practice"}
	for _, id := range valid {
		if err := ValidateIdentifier(id); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		"ABC300",
		"../etc",
		"a/b",
		"a\\b",
		"-leading",
		"way_too_long_identifier_way_too_long_identifier_way_too_long_identifier",
		"abc;rm",
	}
	for _, id := range invalid {
		if err := ValidateIdentifier(id); err == nil {
			t.Errorf("ValidateIdentifier(%q) = nil, want error", id)
		}
	}
}

func TestValidateIdentifiers(t *testing.T) {
	if err := ValidateIdentifiers([]string{"abc300", "a"}); err != nil {
		t.Errorf("all valid, got %v", err)
	}
	if err := ValidateIdentifiers([]string{"abc300", "BAD"}); err == nil {
		t.Error("expected error for mixed validity")
	}
}
