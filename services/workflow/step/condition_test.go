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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateWhen_EmptyGuardIsTrue(t *testing.T) {
	ok, err := EvaluateWhen("", testContext())

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateWhen_DirectoryTest(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext()
	ctx.ContestTemplatePath = dir

	ok, err := EvaluateWhen("test -d {contest_template_path}", ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateWhen("test -d {contest_template_path}/missing", ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateWhen_FileTests(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(full, []byte("data"), 0o644))
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	cases := []struct {
		name string
		when string
		want bool
	}{
		{"f on file", "test -f " + full, true},
		{"f on dir", "test -f " + dir, false},
		{"e on dir", "test -e " + dir, true},
		{"e missing", "test -e " + filepath.Join(dir, "no"), false},
		{"s nonempty", "test -s " + full, true},
		{"s empty", "test -s " + empty, false},
		{"r readable", "test -r " + full, true},
		{"n nonempty string", "test -n value", true},
	}

	ctx := testContext()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := EvaluateWhen(tc.when, ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestEvaluateWhen_Negation(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext()

	ok, err := EvaluateWhen("test ! -d "+filepath.Join(dir, "missing"), ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateWhen("test ! -d "+dir, ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateWhen_StringComparison(t *testing.T) {
	ctx := testContext()

	cases := []struct {
		when string
		want bool
	}{
		{"test {language} = python", true},
		{"test {language} == python", true},
		{"test {language} = rust", false},
		{"test {language} != rust", true},
		{"test 'python' = python", true}, // quote stripping
		{`test "a" != "b"`, true},
	}

	for _, tc := range cases {
		ok, err := EvaluateWhen(tc.when, ctx)
		require.NoError(t, err, tc.when)
		assert.Equal(t, tc.want, ok, tc.when)
	}
}

func TestEvaluateWhen_Conjunction(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext()
	ctx.ContestTemplatePath = dir

	ok, err := EvaluateWhen("test -d {contest_template_path} && test {language} = python", ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateWhen("test -d {contest_template_path} && test {language} = rust", ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateWhen_UnsafeCharactersRejected(t *testing.T) {
	ctx := testContext()

	for _, when := range []string{
		"test -d /tmp; rm -rf /",
		"test -d $(pwd)",
		"test -d `pwd`",
		"test -d /tmp | cat",
	} {
		_, err := EvaluateWhen(when, ctx)
		assert.ErrorIs(t, err, ErrUnsafePredicate, when)
	}
}

func TestEvaluateWhen_MalformedClause(t *testing.T) {
	ctx := testContext()

	for _, when := range []string{
		"ls -la",
		"test",
		"test -z /tmp",
		"test a b c d",
	} {
		_, err := EvaluateWhen(when, ctx)
		assert.ErrorIs(t, err, ErrBadPredicate, when)
	}
}
