// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/sugipamo/project-cph/cmd/cph/config"
	"github.com/sugipamo/project-cph/pkg/ux"
	"github.com/sugipamo/project-cph/pkg/validation"
	"github.com/sugipamo/project-cph/services/workflow"
	"github.com/sugipamo/project-cph/services/workflow/driver"
	"github.com/sugipamo/project-cph/services/workflow/exec"
	"github.com/sugipamo/project-cph/services/workflow/history"
	"github.com/sugipamo/project-cph/services/workflow/step"
)

func runWorkflow(cmd *cobra.Command, args []string) {
	if noColor {
		ux.SetColorEnabled(false)
	}
	lg := newLogger()
	defer lg.Close()
	logger := lg.Logger
	command := args[0]
	cfg := &config.Global

	if contestName != "" {
		if err := validation.ValidateIdentifier(contestName); err != nil {
			log.Fatalf("Error validating contest: %v", err)
		}
	}
	if problemName != "" {
		if err := validation.ValidateIdentifier(problemName); err != nil {
			log.Fatalf("Error validating problem: %v", err)
		}
	}

	workflowCfg, err := cfg.Command(language, command)
	if err != nil {
		log.Fatalf("Error resolving workflow: %v", err)
	}
	stepCtx, err := cfg.StepContext(contestName, problemName, language, envType, command)
	if err != nil {
		log.Fatalf("Error building step context: %v", err)
	}

	drv := buildDriver(workflowCfg, logger)
	service := workflow.NewService(drv, logger)

	opts := workflow.Options{
		Parallel:   parallelFlag || workflowCfg.Parallel.Enabled,
		MaxWorkers: maxWorkers,
	}
	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = workflowCfg.Parallel.MaxWorkers
	}

	// in-flight steps finish; pending steps are skipped on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	result, err := service.Run(ctx, workflowCfg.Records(), stepCtx, opts)
	if err != nil {
		log.Fatalf("Error executing workflow: %v", err)
	}

	renderResult(command, result)
	recordHistory(cfg, command, result, opts.Parallel, started, logger)

	if !result.Success {
		os.Exit(1)
	}
}

// buildDriver wires the driver dispatcher. The docker driver is only
// connected when the workflow actually contains container steps.
func buildDriver(workflowCfg config.CommandConfig, logger *slog.Logger) driver.Driver {
	var docker driver.Driver
	for _, s := range workflowCfg.Steps {
		if kind, err := step.ParseKind(s.Type); err == nil && step.IsDockerOp(kind) {
			d, err := driver.NewDockerDriver(logger)
			if err != nil {
				log.Fatalf("Error connecting to docker: %v", err)
			}
			docker = d
			break
		}
	}
	return driver.NewDispatcher(
		driver.NewFileDriver(logger),
		driver.NewShellDriver(logger),
		docker,
	)
}

func renderResult(command string, result *exec.WorkflowResult) {
	ux.Title(fmt.Sprintf("workflow %s (%s)", command, result.SessionID))

	for _, nr := range result.Results {
		detail := ""
		if nr.Result != nil && nr.Result.ErrorMessage != "" {
			detail = nr.Result.ErrorMessage
		}
		name := nr.Name
		if name == "" {
			name = nr.NodeID
		}
		ux.Statusf(string(nr.Status), name, detail)
	}

	for _, w := range result.Warnings {
		ux.Warning(w)
	}
	for _, e := range result.Errors {
		ux.Error(e)
	}

	if result.Success {
		ux.Success(fmt.Sprintf("completed in %s", result.Duration.Round(time.Millisecond)))
	} else {
		ux.Error(fmt.Sprintf("failed after %s", result.Duration.Round(time.Millisecond)))
	}
}

// recordHistory persists the run summary; history problems never fail a run.
func recordHistory(cfg *config.CphConfig, command string, result *exec.WorkflowResult, parallel bool, started time.Time, logger *slog.Logger) {
	if cfg.HistoryPath == "" {
		return
	}
	store, err := history.Open(cfg.HistoryPath, logger)
	if err != nil {
		logger.Warn("history unavailable", slog.String("error", err.Error()))
		return
	}
	defer store.Close()

	rec := history.RunRecord{
		SessionID:   result.SessionID,
		ContestName: contestName,
		ProblemName: problemName,
		Command:     command,
		Language:    language,
		Success:     result.Success,
		NodeCount:   len(result.Results) + len(result.PreparationResults),
		ErrorCount:  len(result.Errors),
		Parallel:    parallel,
		StartedAt:   started,
		Duration:    result.Duration,
	}
	if err := store.Record(rec); err != nil {
		logger.Warn("failed to record run", slog.String("error", err.Error()))
	}
}
