// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package exec

import (
	"time"

	"github.com/sugipamo/project-cph/services/workflow/driver"
	"github.com/sugipamo/project-cph/services/workflow/graph"
)

// NodeResult pairs a node with its recorded outcome, ordered by topological
// position in the workflow result.
type NodeResult struct {
	NodeID        string
	Name          string
	AutoGenerated bool
	Status        graph.NodeStatus
	Result        *driver.Result
}

// WorkflowResult is the aggregated, user-visible outcome of one run.
//
// Description:
//
//	Errors are data, never exceptions crossing the engine boundary: a
//	failed driver call, a timeout or a cycle all end up in Errors with the
//	per-node statuses telling the full story. Results of auto-generated
//	preparation steps are reported separately from the user's own steps.
type WorkflowResult struct {
	Success            bool
	SessionID          string
	Results            []NodeResult
	PreparationResults []NodeResult
	Errors             []string
	Warnings           []string
	Duration           time.Duration
}

// appendNode files a node outcome into the right bucket.
func (r *WorkflowResult) appendNode(n *graph.Node) {
	nr := NodeResult{
		NodeID:        n.ID,
		Name:          n.Step.Name,
		AutoGenerated: n.Step.AutoGenerated,
		Status:        n.Status,
		Result:        n.Result,
	}
	if nr.AutoGenerated {
		r.PreparationResults = append(r.PreparationResults, nr)
		return
	}
	r.Results = append(r.Results, nr)
}
