// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workflow turns declarative step definitions into a dependency
// graph and runs it. The pipeline is strictly linear: template resolution
// and parsing, preparation insertion, graph construction, execution. Only
// the execution stage has runtime concurrency.
package workflow

import (
	"context"
	"log/slog"

	"github.com/sugipamo/project-cph/services/workflow/driver"
	"github.com/sugipamo/project-cph/services/workflow/exec"
	"github.com/sugipamo/project-cph/services/workflow/graph"
	"github.com/sugipamo/project-cph/services/workflow/step"
)

// Options controls one workflow run.
type Options struct {
	// Parallel selects level-parallel execution over the sequential walk.
	Parallel bool

	// MaxWorkers is the requested pool size for parallel runs. It is
	// clamped against the machine's core count.
	MaxWorkers int
}

// Plan is the inspectable output of the build stages, used by the graph
// command and by Run itself.
type Plan struct {
	Steps    []step.Step
	Graph    *graph.Graph
	Order    []string
	Levels   [][]string
	Errors   []string
	Warnings []string
}

// Service orchestrates the workflow pipeline.
type Service struct {
	driver driver.Driver
	logger *slog.Logger
}

// NewService creates a workflow service over the given driver.
func NewService(drv driver.Driver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{driver: drv, logger: logger}
}

// BuildPlan runs stages A through D without executing anything.
//
// Description:
//
//	Step-generation errors are collected, not raised: the graph is still
//	attempted over the surviving steps. A graph-construction error
//	(principally a cycle) leaves Plan.Graph nil.
func (s *Service) BuildPlan(records []step.Record, ctx *step.Context) Plan {
	var plan Plan

	generated := step.Generate(records, ctx)
	plan.Errors = append(plan.Errors, generated.Errors...)
	plan.Warnings = append(plan.Warnings, generated.Warnings...)
	if len(generated.Steps) == 0 {
		return plan
	}

	prepared := step.ResolveDependencies(generated.Steps, ctx)
	plan.Steps = step.Optimize(prepared)

	built := graph.Build(plan.Steps)
	plan.Errors = append(plan.Errors, built.Errors...)
	plan.Warnings = append(plan.Warnings, built.Warnings...)
	if !built.IsSuccess() {
		return plan
	}
	plan.Graph = built.Graph

	// cycle-free by construction at this point
	plan.Order, _ = built.Graph.TopologicalOrder()
	plan.Levels, _ = built.Graph.ParallelLevels()
	return plan
}

// Run executes a workflow definition end to end.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	records - The declarative step records.
//	stepCtx - The evaluation context.
//	opts - Execution options.
//
// Outputs:
//
//	*exec.WorkflowResult - The aggregated result; never nil on nil error.
//	error - Non-nil only for engine misuse, not for step failures.
func (s *Service) Run(ctx context.Context, records []step.Record, stepCtx *step.Context, opts Options) (*exec.WorkflowResult, error) {
	plan := s.BuildPlan(records, stepCtx)

	if plan.Graph == nil {
		// generation or graph construction failed; report without executing
		return &exec.WorkflowResult{
			Success:  false,
			Errors:   plan.Errors,
			Warnings: plan.Warnings,
		}, nil
	}

	executor, err := exec.NewExecutor(plan.Graph, s.driver, stepCtx, s.logger)
	if err != nil {
		return nil, err
	}

	var result *exec.WorkflowResult
	if opts.Parallel {
		result, err = executor.RunParallel(ctx, opts.MaxWorkers)
	} else {
		result, err = executor.RunSequential(ctx)
	}
	if err != nil {
		return nil, err
	}

	// pre-execution diagnostics ride along with the run's own
	result.Errors = append(plan.Errors, result.Errors...)
	result.Warnings = append(plan.Warnings, result.Warnings...)
	result.Success = len(result.Errors) == 0

	return result, nil
}
