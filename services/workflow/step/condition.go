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
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// unsafeChars are the shell metacharacters a resolved guard must not contain.
// The evaluator never spawns a shell, so their presence indicates either an
// injection attempt or a template that resolved into something nonsensical.
// Screening runs on each clause after the guard is split on "&&", so the
// conjunction separator is accepted while any other "&" is rejected.
const unsafeChars = ";|&$`()\n"

// Predicate is a parsed when guard.
//
// Description:
//
//	Guards parse once into a small AST and evaluate without re-tokenising.
//	Evaluation consults the real filesystem for file tests; it performs no
//	process execution.
type Predicate interface {
	Eval() bool
}

type fileTest struct {
	flag string
	path string
}

type stringCompare struct {
	op  string // "=" or "!="
	lhs string
	rhs string
}

type negate struct {
	inner Predicate
}

type conjunction []Predicate

func (p fileTest) Eval() bool {
	switch p.flag {
	case "-e":
		_, err := os.Stat(p.path)
		return err == nil
	case "-f":
		info, err := os.Stat(p.path)
		return err == nil && info.Mode().IsRegular()
	case "-d":
		info, err := os.Stat(p.path)
		return err == nil && info.IsDir()
	case "-s":
		info, err := os.Stat(p.path)
		return err == nil && info.Size() > 0
	case "-n":
		return p.path != ""
	case "-r":
		return unix.Access(p.path, unix.R_OK) == nil
	case "-w":
		return unix.Access(p.path, unix.W_OK) == nil
	case "-x":
		return unix.Access(p.path, unix.X_OK) == nil
	}
	return false
}

func (p stringCompare) Eval() bool {
	equal := p.lhs == p.rhs
	if p.op == "!=" {
		return !equal
	}
	return equal
}

func (p negate) Eval() bool {
	return !p.inner.Eval()
}

func (p conjunction) Eval() bool {
	for _, clause := range p {
		if !clause.Eval() {
			return false
		}
	}
	return true
}

// EvaluateWhen resolves and evaluates a when guard.
//
// Description:
//
//	The guard is resolved against the context, screened for shell
//	metacharacters, parsed into a predicate AST and evaluated. An empty
//	guard is always true.
//
// Inputs:
//
//	when - The raw guard expression, possibly containing {name} tokens.
//	ctx - The evaluation context.
//
// Outputs:
//
//	bool - The guard's truth value.
//	error - ErrUnsafePredicate or ErrBadPredicate (wrapped) on invalid input.
func EvaluateWhen(when string, ctx *Context) (bool, error) {
	if when == "" {
		return true, nil
	}

	pred, err := ParseWhen(when, ctx)
	if err != nil {
		return false, err
	}
	return pred.Eval(), nil
}

// ParseWhen resolves a guard and parses it into a Predicate.
func ParseWhen(when string, ctx *Context) (Predicate, error) {
	resolved := Resolve(when, ctx)

	clauses := strings.Split(resolved, "&&")
	for _, clause := range clauses {
		if strings.ContainsAny(clause, unsafeChars) {
			return nil, fmt.Errorf("%w: %q", ErrUnsafePredicate, resolved)
		}
	}

	conj := make(conjunction, 0, len(clauses))
	for _, clause := range clauses {
		pred, err := parseClause(strings.TrimSpace(clause))
		if err != nil {
			return nil, err
		}
		conj = append(conj, pred)
	}
	if len(conj) == 1 {
		return conj[0], nil
	}
	return conj, nil
}

// parseClause parses a single "test ..." clause.
func parseClause(clause string) (Predicate, error) {
	fields := strings.Fields(clause)
	if len(fields) < 2 || fields[0] != "test" {
		return nil, fmt.Errorf("%w: must start with 'test': %q", ErrBadPredicate, clause)
	}
	args := fields[1:]

	negated := false
	if args[0] == "!" {
		negated = true
		args = args[1:]
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrBadPredicate, clause)
	}

	var pred Predicate
	switch {
	case strings.HasPrefix(args[0], "-") && len(args) == 2:
		switch args[0] {
		case "-d", "-f", "-e", "-n", "-r", "-w", "-x", "-s":
			pred = fileTest{flag: args[0], path: args[1]}
		default:
			return nil, fmt.Errorf("%w: unsupported flag %q", ErrBadPredicate, args[0])
		}

	case len(args) == 3 && (args[1] == "=" || args[1] == "==" || args[1] == "!="):
		op := args[1]
		if op == "==" {
			op = "="
		}
		pred = stringCompare{op: op, lhs: stripQuotes(args[0]), rhs: stripQuotes(args[2])}

	default:
		return nil, fmt.Errorf("%w: %q", ErrBadPredicate, clause)
	}

	if negated {
		pred = negate{inner: pred}
	}
	return pred, nil
}

// stripQuotes removes one layer of matching single or double quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
