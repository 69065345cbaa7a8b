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
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

// FileDriver performs filesystem step kinds directly on the local disk.
type FileDriver struct {
	logger *slog.Logger
}

// NewFileDriver creates a file driver.
func NewFileDriver(logger *slog.Logger) *FileDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileDriver{logger: logger}
}

// Execute runs a filesystem request.
func (d *FileDriver) Execute(_ context.Context, req Request) (*Result, error) {
	var err error

	switch req.Kind {
	case step.KindMkdir:
		err = os.MkdirAll(req.Args[0], 0o755)

	case step.KindTouch:
		err = touch(req.Args[0])

	case step.KindCopy:
		err = copyFile(req.Args[0], req.Args[1])

	case step.KindCopyTree:
		err = copyTree(req.Args[0], req.Args[1])

	case step.KindMove:
		err = rename(req.Args[0], req.Args[1])

	case step.KindMoveTree:
		err = rename(req.Args[0], req.Args[1])

	case step.KindRemove:
		err = os.Remove(req.Args[0])

	case step.KindRmTree:
		err = os.RemoveAll(req.Args[0])

	case step.KindChmod:
		err = chmod(req.Args[0], req.Args[1])

	case step.KindResult:
		_, statErr := os.Stat(req.Args[0])
		return &Result{Success: true, Path: req.Args[0], Exists: statErr == nil}, nil

	default:
		return nil, fmt.Errorf("file driver cannot execute %s", req.Kind)
	}

	if err != nil {
		d.logger.Debug("file operation failed",
			slog.String("kind", string(req.Kind)),
			slog.String("error", err.Error()),
		)
		return &Result{Success: false, ErrorMessage: err.Error(), Path: req.Path}, nil
	}

	return &Result{Success: true, Path: req.Path, Exists: true}, nil
}

func touch(p string) error {
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

// rename moves a file or tree, falling back to copy+remove across devices.
func rename(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := copyTree(src, dst); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func chmod(mode, p string) error {
	parsed, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid mode %q: %w", mode, err)
	}
	return os.Chmod(p, os.FileMode(parsed))
}
