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
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sugipamo/project-cph/cmd/cph/config"
	"github.com/sugipamo/project-cph/pkg/ux"
	"github.com/sugipamo/project-cph/services/workflow"
)

// runGraph builds the execution plan without running it and prints nodes,
// edges and parallel levels.
func runGraph(cmd *cobra.Command, args []string) {
	if noColor {
		ux.SetColorEnabled(false)
	}
	lg := newLogger()
	defer lg.Close()
	logger := lg.Logger
	command := args[0]
	cfg := &config.Global

	workflowCfg, err := cfg.Command(language, command)
	if err != nil {
		log.Fatalf("Error resolving workflow: %v", err)
	}
	stepCtx, err := cfg.StepContext(contestName, problemName, language, envType, command)
	if err != nil {
		log.Fatalf("Error building step context: %v", err)
	}

	service := workflow.NewService(nil, logger)
	plan := service.BuildPlan(workflowCfg.Records(), stepCtx)

	for _, w := range plan.Warnings {
		ux.Warning(w)
	}
	for _, e := range plan.Errors {
		ux.Error(e)
	}
	if plan.Graph == nil {
		log.Fatal("graph construction failed")
	}

	ux.Title(fmt.Sprintf("workflow %s: %d steps", command, len(plan.Steps)))
	for _, id := range plan.Graph.NodeIDs() {
		n, _ := plan.Graph.Node(id)
		auto := ""
		if n.Step.AutoGenerated {
			auto = " (auto)"
		}
		fmt.Fprintf(ux.Out, "  %s %s: %s %s%s\n",
			ux.IconBullet, id, n.Step.Kind, strings.Join(n.Step.Cmd, " "), auto)
	}

	ux.Title("edges")
	for _, e := range plan.Graph.Edges() {
		resource := ""
		if e.Resource != "" {
			resource = " [" + e.Resource + "]"
		}
		fmt.Fprintf(ux.Out, "  %s %s %s %s (%s)%s\n",
			ux.IconBullet, e.From, ux.IconArrow, e.To, e.Kind, resource)
	}

	ux.Title("parallel levels")
	for i, level := range plan.Levels {
		fmt.Fprintf(ux.Out, "  level %d: %s\n", i, strings.Join(level, ", "))
	}
}
