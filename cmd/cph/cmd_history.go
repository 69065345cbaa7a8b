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
	"time"

	"github.com/spf13/cobra"

	"github.com/sugipamo/project-cph/cmd/cph/config"
	"github.com/sugipamo/project-cph/pkg/ux"
	"github.com/sugipamo/project-cph/services/workflow/history"
)

func runHistory(cmd *cobra.Command, args []string) {
	if noColor {
		ux.SetColorEnabled(false)
	}
	lg := newLogger()
	defer lg.Close()
	logger := lg.Logger
	cfg := &config.Global

	if cfg.HistoryPath == "" {
		log.Fatal("history_path is not configured")
	}

	store, err := history.Open(cfg.HistoryPath, logger)
	if err != nil {
		log.Fatalf("Error opening history: %v", err)
	}
	defer store.Close()

	records, err := store.List(historyLimit)
	if err != nil {
		log.Fatalf("Error listing history: %v", err)
	}

	ux.Title(fmt.Sprintf("last %d runs", len(records)))
	for _, rec := range records {
		status := "completed"
		if !rec.Success {
			status = "failed"
		}
		detail := fmt.Sprintf("%s %s/%s %s (%d nodes, %s)",
			rec.StartedAt.Format(time.RFC3339),
			rec.Language, rec.Command, rec.SessionID,
			rec.NodeCount, rec.Duration.Round(time.Millisecond))
		ux.Statusf(status, detail, "")
	}
}
