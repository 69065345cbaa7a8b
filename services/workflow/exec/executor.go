// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package exec runs a built workflow graph, sequentially or with bounded
// parallelism, propagating failure to dependents and substituting prior
// results into downstream commands.
package exec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/sugipamo/project-cph/services/workflow/driver"
	"github.com/sugipamo/project-cph/services/workflow/graph"
	"github.com/sugipamo/project-cph/services/workflow/step"
)

var (
	tracer = otel.Tracer("cph.workflow")
	meter  = otel.Meter("cph.workflow")
)

// DefaultTaskTimeout bounds a single node's driver call.
const DefaultTaskTimeout = 5 * time.Minute

// ErrNilContext is returned when a nil context is passed.
var ErrNilContext = errors.New("context must not be nil")

// ErrInvalidInput is returned when required inputs are missing.
var ErrInvalidInput = errors.New("invalid input")

// Executor runs a workflow graph through an injected driver.
//
// Description:
//
//	Executor owns the only mutable state of a run: node status/result and
//	the accumulated execution-results index. The graph structure, the steps
//	and the evaluation context stay read-only throughout.
//
// Thread Safety:
//
//	One Executor drives one run. Concurrent runs need separate executors
//	over separate graphs.
type Executor struct {
	graph       *graph.Graph
	driver      driver.Driver
	stepCtx     *step.Context
	logger      *slog.Logger
	taskTimeout time.Duration

	// Metrics (initialized lazily)
	metricsOnce     sync.Once
	nodeLatency     metric.Float64Histogram
	nodeSuccesses   metric.Int64Counter
	nodeFailures    metric.Int64Counter
	activeNodes     metric.Int64UpDownCounter
	workflowLatency metric.Float64Histogram

	resultsMu sync.Mutex
}

// NewExecutor creates an executor for one run.
//
// Inputs:
//
//	g - The validated graph. Must not be nil.
//	drv - The driver performing leaf I/O. Must not be nil.
//	stepCtx - The evaluation context for guard evaluation. Must not be nil.
//	logger - Logger for execution logs. If nil, uses slog.Default().
//
// Outputs:
//
//	*Executor - The configured executor.
//	error - Non-nil if a required input is missing.
func NewExecutor(g *graph.Graph, drv driver.Driver, stepCtx *step.Context, logger *slog.Logger) (*Executor, error) {
	if g == nil || drv == nil || stepCtx == nil {
		return nil, ErrInvalidInput
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		graph:       g,
		driver:      drv,
		stepCtx:     stepCtx,
		logger:      logger,
		taskTimeout: DefaultTaskTimeout,
	}, nil
}

// WithTaskTimeout overrides the per-node timeout.
func (e *Executor) WithTaskTimeout(d time.Duration) *Executor {
	if d > 0 {
		e.taskTimeout = d
	}
	return e
}

// OptimalWorkers clamps a requested worker count to the machine.
// The pool never exceeds twice the core count and never drops below one.
func OptimalWorkers(requested, cpuCount int) int {
	if cpuCount < 1 {
		cpuCount = 1
	}
	workers := requested
	if workers > cpuCount*2 {
		workers = cpuCount * 2
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// initMetrics lazily initializes metrics. Failures degrade observability,
// not execution.
func (e *Executor) initMetrics() {
	e.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		e.nodeLatency, err = meter.Float64Histogram("workflow_node_duration_seconds",
			metric.WithDescription("Time spent executing each workflow node"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "node_latency: "+err.Error())
		}

		e.nodeSuccesses, err = meter.Int64Counter("workflow_node_success_total",
			metric.WithDescription("Number of successful node executions"),
		)
		if err != nil {
			initErrors = append(initErrors, "node_successes: "+err.Error())
		}

		e.nodeFailures, err = meter.Int64Counter("workflow_node_failure_total",
			metric.WithDescription("Number of failed node executions"),
		)
		if err != nil {
			initErrors = append(initErrors, "node_failures: "+err.Error())
		}

		e.activeNodes, err = meter.Int64UpDownCounter("workflow_active_nodes",
			metric.WithDescription("Number of currently executing nodes"),
		)
		if err != nil {
			initErrors = append(initErrors, "active_nodes: "+err.Error())
		}

		e.workflowLatency, err = meter.Float64Histogram("workflow_duration_seconds",
			metric.WithDescription("Total workflow execution time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "workflow_latency: "+err.Error())
		}

		if len(initErrors) > 0 {
			e.logger.Error("failed to initialize some workflow metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// RunSequential executes the graph one node at a time in topological order.
//
// Description:
//
//	Each node's guard is evaluated first; a false guard skips the node
//	without touching the driver and without poisoning its dependents. A
//	hard failure with allow_failure=false marks every transitive dependent
//	skipped and stops the walk.
func (e *Executor) RunSequential(ctx context.Context) (*WorkflowResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	e.initMetrics()

	order, err := e.graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "workflow.RunSequential",
		trace.WithAttributes(attribute.Int("workflow.node_count", len(order))),
	)
	defer span.End()

	start := time.Now()
	sessionID := uuid.NewString()[:12]
	result := &WorkflowResult{SessionID: sessionID}

	e.logger.Info("workflow started",
		slog.String("session_id", sessionID),
		slog.Int("nodes", len(order)),
		slog.Bool("parallel", false),
	)

	for _, id := range order {
		node, _ := e.graph.Node(id)

		if ctx.Err() != nil {
			e.markSkipped(node)
			continue
		}

		if stop := e.runNode(ctx, node, result); stop {
			// the walk halts; everything not yet reached stays pending
			// unless it transitively depended on the failure
			for _, dep := range e.graph.TransitiveDependents(id) {
				depNode, _ := e.graph.Node(dep)
				e.markSkipped(depNode)
			}
			break
		}
	}

	e.finish(ctx, span, result, order, start)
	return result, nil
}

// RunParallel executes the graph level by level through a bounded worker
// pool.
//
// Description:
//
//	One semaphore-bounded pool serves the whole run; level boundaries are
//	still synchronisation points. Within a level nodes run concurrently
//	with no mutual ordering; a node whose dependencies intersect the
//	accumulated failed set is skipped before submission.
func (e *Executor) RunParallel(ctx context.Context, maxWorkers int) (*WorkflowResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	e.initMetrics()

	levels, err := e.graph.ParallelLevels()
	if err != nil {
		return nil, err
	}
	order, err := e.graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	workers := OptimalWorkers(maxWorkers, runtime.NumCPU())

	ctx, span := tracer.Start(ctx, "workflow.RunParallel",
		trace.WithAttributes(
			attribute.Int("workflow.node_count", len(order)),
			attribute.Int("workflow.levels", len(levels)),
			attribute.Int("workflow.workers", workers),
		),
	)
	defer span.End()

	start := time.Now()
	sessionID := uuid.NewString()[:12]
	result := &WorkflowResult{SessionID: sessionID}

	e.logger.Info("workflow started",
		slog.String("session_id", sessionID),
		slog.Int("nodes", len(order)),
		slog.Int("levels", len(levels)),
		slog.Int("workers", workers),
		slog.Bool("parallel", true),
	)

	pool := semaphore.NewWeighted(int64(workers))
	failed := make(map[string]bool)
	var failedMu sync.Mutex

	for _, level := range levels {
		if ctx.Err() != nil {
			for _, id := range level {
				node, _ := e.graph.Node(id)
				if node.Status == graph.NodeStatusPending {
					e.markSkipped(node)
				}
			}
			continue
		}

		var wg sync.WaitGroup
		for _, id := range level {
			node, _ := e.graph.Node(id)

			failedMu.Lock()
			poisoned := dependsOnFailed(e.graph, id, failed)
			failedMu.Unlock()
			if poisoned {
				e.markSkipped(node)
				continue
			}

			wg.Add(1)
			go func(node *graph.Node) {
				defer wg.Done()
				if err := pool.Acquire(ctx, 1); err != nil {
					e.markSkipped(node)
					return
				}
				defer pool.Release(1)

				hardFailure := e.runNode(ctx, node, result)
				if hardFailure {
					failedMu.Lock()
					failed[node.ID] = true
					failedMu.Unlock()
				}
			}(node)
		}

		// level barrier: every task completes before the next level starts
		wg.Wait()
	}

	e.finish(ctx, span, result, order, start)
	return result, nil
}

// dependsOnFailed reports whether any dependency of id is in the failed set.
func dependsOnFailed(g *graph.Graph, id string, failed map[string]bool) bool {
	for _, dep := range g.Dependencies(id) {
		if failed[dep] {
			return true
		}
	}
	return false
}

// runNode executes a single node end to end: guard, substitution, driver
// call, result recording. The returned bool is true when the failure must
// poison dependents (failed and allow_failure unset).
func (e *Executor) runNode(ctx context.Context, node *graph.Node, result *WorkflowResult) bool {
	ctx, span := tracer.Start(ctx, node.ID,
		trace.WithAttributes(
			attribute.String("workflow.node", node.ID),
			attribute.String("workflow.step_type", string(node.Step.Kind)),
		),
	)
	defer span.End()

	// guard first: a false guard never reaches the driver
	if node.Step.When != "" {
		ok, err := step.EvaluateWhen(node.Step.When, e.stepCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.recordResult(node, &driver.Result{Success: false, ErrorMessage: err.Error()}, result)
			return !node.Step.AllowFailure
		}
		if !ok {
			e.logger.Debug("guard false, skipping node",
				slog.String("node", node.ID),
				slog.String("when", node.Step.When),
			)
			e.markGuardSkipped(node)
			return false
		}
	}

	req := driver.NewRequest(node.Step)
	e.resultsMu.Lock()
	ApplyToRequest(&req, e.graph.ExecutionResults)
	e.resultsMu.Unlock()

	e.setStatus(node, graph.NodeStatusRunning)
	if e.activeNodes != nil {
		e.activeNodes.Add(ctx, 1)
		defer e.activeNodes.Add(ctx, -1)
	}

	nodeStart := time.Now()
	res := e.executeSafe(ctx, req)
	duration := time.Since(nodeStart)

	if e.nodeLatency != nil {
		e.nodeLatency.Record(ctx, duration.Seconds(),
			metric.WithAttributes(attribute.String("node", node.ID)),
		)
	}

	if res.Success {
		if e.nodeSuccesses != nil {
			e.nodeSuccesses.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node.ID)))
		}
		span.SetStatus(codes.Ok, "")
		e.logger.Info("node completed",
			slog.String("node", node.ID),
			slog.String("step_type", string(node.Step.Kind)),
			slog.Duration("duration", duration),
		)
	} else {
		if e.nodeFailures != nil {
			e.nodeFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node.ID)))
		}
		span.SetStatus(codes.Error, res.ErrorMessage)
		e.logger.Error("node failed",
			slog.String("node", node.ID),
			slog.String("step_type", string(node.Step.Kind)),
			slog.Duration("duration", duration),
			slog.String("error", res.ErrorMessage),
		)
	}

	e.recordResult(node, res, result)
	return !res.Success && !node.Step.AllowFailure
}

// executeSafe invokes the driver with the per-task timeout and converts
// panics and errors into failure results.
func (e *Executor) executeSafe(ctx context.Context, req driver.Request) (res *driver.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = &driver.Result{
				Success:      false,
				ErrorMessage: fmt.Sprintf("driver panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	res, err := e.driver.Execute(taskCtx, req)
	if err != nil {
		msg := err.Error()
		if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("task timed out after %s: %s", e.taskTimeout, msg)
		}
		return &driver.Result{Success: false, ErrorMessage: msg}
	}
	if res == nil {
		return &driver.Result{Success: false, ErrorMessage: "driver returned no result"}
	}
	if !res.Success && errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
		res.ErrorMessage = fmt.Sprintf("task timed out after %s: %s", e.taskTimeout, res.ErrorMessage)
	}
	return res
}

// recordResult writes the node outcome exactly once, under the results lock.
func (e *Executor) recordResult(node *graph.Node, res *driver.Result, result *WorkflowResult) {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()

	node.Result = res
	if res.Success {
		node.Status = graph.NodeStatusCompleted
	} else {
		node.Status = graph.NodeStatusFailed
	}
	e.graph.ExecutionResults[node.ID] = res

	if !res.Success {
		if node.Step.AllowFailure {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s failed (allowed): %s", node.ID, res.ErrorMessage))
		} else {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s failed: %s", node.ID, res.ErrorMessage))
		}
	}
}

// markSkipped records an upstream-failure skip.
func (e *Executor) markSkipped(node *graph.Node) {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	if node.Status != graph.NodeStatusPending {
		return
	}
	node.Status = graph.NodeStatusSkipped
	node.Result = &driver.Result{Success: false, Skipped: true,
		ErrorMessage: "skipped due to upstream failure"}
	e.graph.ExecutionResults[node.ID] = node.Result
}

// markGuardSkipped records a guard skip, which is not a failure: dependents
// still run.
func (e *Executor) markGuardSkipped(node *graph.Node) {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	node.Status = graph.NodeStatusSkipped
	node.Result = &driver.Result{Success: true, Skipped: true}
	e.graph.ExecutionResults[node.ID] = node.Result
}

// setStatus transitions a node's status under the lock.
func (e *Executor) setStatus(node *graph.Node, status graph.NodeStatus) {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	node.Status = status
}

// finish assembles the ordered result list and closes out observability.
func (e *Executor) finish(ctx context.Context, span trace.Span, result *WorkflowResult, order []string, start time.Time) {
	for _, id := range order {
		node, _ := e.graph.Node(id)
		result.appendNode(node)
	}

	result.Duration = time.Since(start)
	result.Success = len(result.Errors) == 0

	if e.workflowLatency != nil {
		e.workflowLatency.Record(ctx, result.Duration.Seconds())
	}

	if result.Success {
		span.SetStatus(codes.Ok, "")
		e.logger.Info("workflow completed",
			slog.String("session_id", result.SessionID),
			slog.Duration("duration", result.Duration),
			slog.Int("nodes", len(order)),
		)
	} else {
		span.SetStatus(codes.Error, result.Errors[0])
		e.logger.Error("workflow failed",
			slog.String("session_id", result.SessionID),
			slog.Duration("duration", result.Duration),
			slog.Int("errors", len(result.Errors)),
		)
	}
}
