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
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sugipamo/project-cph/services/workflow/step"
)

// DockerDriver runs container step kinds against the local docker daemon.
type DockerDriver struct {
	Client *client.Client
	logger *slog.Logger
}

// NewDockerDriver connects to the daemon using the standard environment
// variables (DOCKER_HOST and friends).
func NewDockerDriver(logger *slog.Logger) (*DockerDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &DockerDriver{Client: cli, logger: logger}, nil
}

// Execute runs a container request.
func (d *DockerDriver) Execute(ctx context.Context, req Request) (*Result, error) {
	switch req.Kind {
	case step.KindDockerExec:
		return d.execInContainer(ctx, req.Args[0], req.Args[1:], req.Cwd)
	case step.KindDockerCp:
		return d.copyToContainer(ctx, req.Args[0], req.Args[1])
	case step.KindDockerRun:
		return d.runContainer(ctx, req.Args)
	case step.KindDockerBuild:
		return d.buildImage(ctx, req.Args)
	case step.KindDockerCommit:
		return d.commitContainer(ctx, req.Args[0], req.Args[1])
	case step.KindDockerRm:
		return d.removeContainer(ctx, req.Args[0])
	case step.KindDockerRmi:
		return d.removeImage(ctx, req.Args[0])
	}
	return nil, fmt.Errorf("docker driver cannot execute %s", req.Kind)
}

func (d *DockerDriver) execInContainer(ctx context.Context, containerID string, cmd []string, workdir string) (*Result, error) {
	exec, err := d.Client.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   workdir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return failure(err), nil
	}

	resp, err := d.Client.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return failure(err), nil
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil && err != io.EOF {
		return failure(err), nil
	}

	inspect, err := d.Client.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return failure(err), nil
	}

	result := &Result{
		Success:  inspect.ExitCode == 0,
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if !result.Success {
		result.ErrorMessage = fmt.Sprintf("exec exited with code %d", inspect.ExitCode)
	}
	return result, nil
}

// copyToContainer copies a local path into a container. The destination is
// "container:path" as with the docker cp command line.
func (d *DockerDriver) copyToContainer(ctx context.Context, src, dst string) (*Result, error) {
	containerID, dstPath, ok := strings.Cut(dst, ":")
	if !ok {
		return failure(fmt.Errorf("docker_cp destination %q must be container:path", dst)), nil
	}

	archive, err := tarPath(src)
	if err != nil {
		return failure(err), nil
	}

	err = d.Client.CopyToContainer(ctx, containerID, dstPath, archive, container.CopyToContainerOptions{})
	if err != nil {
		return failure(err), nil
	}
	return &Result{Success: true, Path: dstPath}, nil
}

func (d *DockerDriver) runContainer(ctx context.Context, args []string) (*Result, error) {
	imageRef := args[0]
	var cmd []string
	if len(args) > 1 {
		cmd = args[1:]
	}

	created, err := d.Client.ContainerCreate(ctx, &container.Config{
		Image: imageRef,
		Cmd:   cmd,
		Tty:   false,
	}, nil, nil, nil, "")
	if err != nil {
		return failure(err), nil
	}

	if err := d.Client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return failure(err), nil
	}

	d.logger.Info("container started",
		slog.String("image", imageRef),
		slog.String("container_id", created.ID[:12]),
	)
	return &Result{Success: true, Stdout: created.ID}, nil
}

func (d *DockerDriver) buildImage(ctx context.Context, args []string) (*Result, error) {
	contextDir := args[0]
	var tags []string
	if len(args) > 1 {
		tags = args[1:]
	}

	buildContext, err := tarPath(contextDir)
	if err != nil {
		return failure(err), nil
	}

	resp, err := d.Client.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Tags:   tags,
		Remove: true,
	})
	if err != nil {
		return failure(err), nil
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, resp.Body); err != nil {
		return failure(err), nil
	}
	return &Result{Success: true, Stdout: out.String()}, nil
}

func (d *DockerDriver) commitContainer(ctx context.Context, containerID, ref string) (*Result, error) {
	resp, err := d.Client.ContainerCommit(ctx, containerID, container.CommitOptions{Reference: ref})
	if err != nil {
		return failure(err), nil
	}
	return &Result{Success: true, Stdout: resp.ID}, nil
}

func (d *DockerDriver) removeContainer(ctx context.Context, containerID string) (*Result, error) {
	err := d.Client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err != nil {
		return failure(err), nil
	}
	return &Result{Success: true}, nil
}

func (d *DockerDriver) removeImage(ctx context.Context, ref string) (*Result, error) {
	_, err := d.Client.ImageRemove(ctx, ref, image.RemoveOptions{Force: true})
	if err != nil {
		return failure(err), nil
	}
	return &Result{Success: true}, nil
}

func failure(err error) *Result {
	return &Result{Success: false, ErrorMessage: err.Error()}
}

// tarPath packs a file or directory into an in-memory tar stream.
func tarPath(root string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	addFile := func(p, name string, info os.FileInfo) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = name
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	}

	if !info.IsDir() {
		if err := addFile(root, filepath.Base(root), info); err != nil {
			return nil, err
		}
	} else {
		err = filepath.Walk(root, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, p)
			if err != nil || rel == "." {
				return err
			}
			return addFile(p, filepath.ToSlash(rel), fi)
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
