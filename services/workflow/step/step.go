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
	"errors"
	"fmt"
)

// Kind identifies the operation a step performs.
type Kind string

// The closed set of step kinds. File operations act on the workspace
// filesystem, execution operations spawn processes, docker operations talk
// to a container engine.
const (
	KindShell        Kind = "shell"
	KindPython       Kind = "python"
	KindCopy         Kind = "copy"
	KindCopyTree     Kind = "copytree"
	KindMove         Kind = "move"
	KindMoveTree     Kind = "movetree"
	KindMkdir        Kind = "mkdir"
	KindTouch        Kind = "touch"
	KindRemove       Kind = "remove"
	KindRmTree       Kind = "rmtree"
	KindOj           Kind = "oj"
	KindTest         Kind = "test"
	KindBuild        Kind = "build"
	KindResult       Kind = "result"
	KindDockerExec   Kind = "docker_exec"
	KindDockerCp     Kind = "docker_cp"
	KindDockerRun    Kind = "docker_run"
	KindDockerBuild  Kind = "docker_build"
	KindDockerCommit Kind = "docker_commit"
	KindDockerRm     Kind = "docker_rm"
	KindDockerRmi    Kind = "docker_rmi"
	KindChmod        Kind = "chmod"
	KindRun          Kind = "run"
)

// Sentinel errors for the step package.
var (
	// ErrInvalidStep is returned when a step definition violates an invariant.
	ErrInvalidStep = errors.New("invalid step")

	// ErrUnknownKind is returned for a type field naming no known kind.
	ErrUnknownKind = errors.New("unknown step type")

	// ErrUnsafePredicate is returned when a when guard contains shell metacharacters.
	ErrUnsafePredicate = errors.New("unsafe characters in when clause")

	// ErrBadPredicate is returned when a when guard cannot be parsed.
	ErrBadPredicate = errors.New("malformed when clause")
)

// StepError wraps an error with the index of the offending step record.
type StepError struct {
	Index int
	Err   error
}

// Error returns the error message.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// minArity maps each kind to the minimum argument count it accepts.
var minArity = map[Kind]int{
	KindShell:        1,
	KindPython:       1,
	KindCopy:         2,
	KindCopyTree:     2,
	KindMove:         2,
	KindMoveTree:     2,
	KindMkdir:        1,
	KindTouch:        1,
	KindRemove:       1,
	KindRmTree:       1,
	KindOj:           1,
	KindTest:         1,
	KindBuild:        1,
	KindResult:       1,
	KindDockerExec:   2,
	KindDockerCp:     2,
	KindDockerRun:    1,
	KindDockerBuild:  1,
	KindDockerCommit: 2,
	KindDockerRm:     1,
	KindDockerRmi:    1,
	KindChmod:        2,
	KindRun:          1,
}

// ParseKind converts a raw type string into a Kind.
//
// Outputs:
//
//	Kind - The parsed kind.
//	error - ErrUnknownKind if the string names no kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := minArity[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Step is a single declarative unit of work.
//
// Description:
//
//	A Step carries a kind, an ordered argument vector and execution flags.
//	Steps are immutable after construction; the executor derives per-run
//	request values from them and never writes back.
type Step struct {
	Kind          Kind
	Cmd           []string
	AllowFailure  bool
	ShowOutput    bool
	Cwd           string
	When          string // stored unresolved, evaluated lazily before execution
	Name          string
	ForceEnvType  string
	AutoGenerated bool
	MaxWorkers    int
}

// New constructs a validated Step.
//
// Inputs:
//
//	kind - The step kind.
//	cmd - The argument vector. Must satisfy the kind's minimum arity.
//
// Outputs:
//
//	Step - The constructed step.
//	error - ErrInvalidStep (wrapped) if an invariant is violated.
func New(kind Kind, cmd []string) (Step, error) {
	min, ok := minArity[kind]
	if !ok {
		return Step{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	if len(cmd) == 0 {
		return Step{}, fmt.Errorf("%w: %s must have non-empty cmd", ErrInvalidStep, kind)
	}
	if len(cmd) < min {
		return Step{}, fmt.Errorf("%w: %s requires at least %d arguments, got %d",
			ErrInvalidStep, kind, min, len(cmd))
	}
	return Step{Kind: kind, Cmd: append([]string(nil), cmd...), MaxWorkers: 1}, nil
}

// WithFlags returns a copy with the failure/output flags set.
func (s Step) WithFlags(allowFailure, showOutput bool) Step {
	s.AllowFailure = allowFailure
	s.ShowOutput = showOutput
	return s
}

// WithCwd returns a copy with the working directory set.
func (s Step) WithCwd(cwd string) Step {
	s.Cwd = cwd
	return s
}

// WithWhen returns a copy with the guard expression set.
func (s Step) WithWhen(when string) Step {
	s.When = when
	return s
}

// WithName returns a copy with the display name set.
func (s Step) WithName(name string) Step {
	s.Name = name
	return s
}

// AsAutoGenerated returns a copy flagged as inserted by the preparation pass.
func (s Step) AsAutoGenerated() Step {
	s.AutoGenerated = true
	return s
}

// IsFileProducing reports whether the step writes a file or tree at its
// destination argument. These are the kinds the preparation pass inspects.
func (s Step) IsFileProducing() bool {
	switch s.Kind {
	case KindCopy, KindMove, KindMoveTree, KindTouch:
		return true
	}
	return false
}

// IsTreeOp reports whether the step operates on a directory tree rather
// than individual files. Tree kinds get directory-prefix pattern expansion.
func IsTreeOp(k Kind) bool {
	switch k {
	case KindMoveTree, KindRmTree, KindCopyTree:
		return true
	}
	return false
}

// IsFileOp reports whether the kind is a filesystem operation with a
// (source, destination) or (path) argument shape.
func IsFileOp(k Kind) bool {
	switch k {
	case KindCopy, KindCopyTree, KindMove, KindMoveTree,
		KindMkdir, KindTouch, KindRemove, KindRmTree, KindChmod:
		return true
	}
	return false
}

// IsDockerOp reports whether the kind talks to the container engine.
func IsDockerOp(k Kind) bool {
	switch k {
	case KindDockerExec, KindDockerCp, KindDockerRun, KindDockerBuild,
		KindDockerCommit, KindDockerRm, KindDockerRmi:
		return true
	}
	return false
}
