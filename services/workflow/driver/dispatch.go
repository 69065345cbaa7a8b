// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package driver

import (
	"context"
	"fmt"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

// Dispatcher routes requests to the driver owning their kind category.
//
// Description:
//
//	The engine treats all drivers uniformly through the Execute port;
//	selecting a concrete driver happens here, at the boundary, never inside
//	the core. A nil Docker driver is legal for workflows without container
//	steps; hitting a container step then yields a failure result.
type Dispatcher struct {
	File   Driver
	Shell  Driver
	Docker Driver
}

// NewDispatcher wires the three driver categories.
func NewDispatcher(file, shell, docker Driver) *Dispatcher {
	return &Dispatcher{File: file, Shell: shell, Docker: docker}
}

// Execute routes the request by kind.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (*Result, error) {
	switch {
	case step.IsDockerOp(req.Kind):
		if d.Docker == nil {
			return &Result{
				Success:      false,
				ErrorMessage: fmt.Sprintf("no docker driver configured for %s", req.Kind),
			}, nil
		}
		return d.Docker.Execute(ctx, req)

	case step.IsFileOp(req.Kind), req.Kind == step.KindResult:
		return d.File.Execute(ctx, req)

	default:
		return d.Shell.Execute(ctx, req)
	}
}
