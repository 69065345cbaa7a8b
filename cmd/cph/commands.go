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
	"log"

	"github.com/spf13/cobra"

	"github.com/sugipamo/project-cph/cmd/cph/config"
)

// --- Global Command Variables ---
var (
	contestName  string
	problemName  string
	language     string
	envType      string
	parallelFlag bool
	maxWorkers   int
	verbose      bool
	noColor      bool
	historyLimit int

	rootCmd = &cobra.Command{
		Use:   "cph",
		Short: "A workflow engine for competitive programming environments",
		Long: `cph turns declarative step definitions into a dependency-aware
execution plan and runs it: file operations, shell commands and
container operations, sequentially or with bounded parallelism.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.Load(); err != nil {
				log.Fatalf("Error loading configuration: %v", err)
			}
		},
	}

	runCmd = &cobra.Command{
		Use:   "run [command]",
		Short: "Run a workflow command for the selected language",
		Args:  cobra.ExactArgs(1),
		Run:   runWorkflow, // Defined in cmd_run.go
	}

	graphCmd = &cobra.Command{
		Use:   "graph [command]",
		Short: "Print the dependency graph and parallel levels of a workflow",
		Args:  cobra.ExactArgs(1),
		Run:   runGraph, // Defined in cmd_graph.go
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recorded workflow runs",
		Run:   runHistory, // Defined in cmd_history.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&contestName, "contest", "c", "", "contest identifier")
	rootCmd.PersistentFlags().StringVarP(&problemName, "problem", "p", "", "problem identifier")
	rootCmd.PersistentFlags().StringVarP(&language, "language", "l", "python", "language tag")
	rootCmd.PersistentFlags().StringVar(&envType, "env", "local", "environment tag (local or docker)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	runCmd.Flags().BoolVar(&parallelFlag, "parallel", false, "force level-parallel execution")
	runCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "worker pool size for parallel execution")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(historyCmd)
}
