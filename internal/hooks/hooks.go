// Copyright 2025 The git-worktree-runner Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package hooks runs a project's post-create commands sequentially, via the
// platform shell, stopping at the first failure and reporting per-step
// detail for every command attempted.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// ErrHookFailed is returned when a hook command exits non-zero.
var ErrHookFailed = errors.New("hook failed")

// Options configures hook execution output.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Context carries the contextual environment variables gwm exposes to every
// hook command.
type Context struct {
	WorktreePath string
	BranchName   string
	RepoRoot     string
	RepoName     string
}

// Env returns the GWM_* environment variables for this context.
func (c Context) Env() []string {
	return []string{
		"GWM_WORKTREE_PATH=" + c.WorktreePath,
		"GWM_BRANCH_NAME=" + c.BranchName,
		"GWM_REPO_ROOT=" + c.RepoRoot,
		"GWM_REPO_NAME=" + c.RepoName,
	}
}

// Step records the outcome of one executed hook command.
type Step struct {
	Command  string
	Success  bool
	Duration time.Duration
	ExitCode int
	Error    string
}

// Result summarizes a full hook run.
type Result struct {
	Success       bool
	ExecutedCount int
	FailedIndex   int // 1-based; zero when Success
	FailedCommand string
	ExitCode      int
	Steps         []Step
}

// HookError reports a failing hook, for callers that prefer err != nil over
// inspecting Result.
type HookError struct {
	Phase    string
	Index    int
	Command  string
	ExitCode int
	Stderr   string
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %d failed (exit %d): %s", e.Phase, e.Index, e.ExitCode, e.Command)
}

func (e *HookError) Unwrap() error { return ErrHookFailed }

// Run executes hookCmds sequentially in dir, stopping at the first non-zero
// exit. Commands run via the platform shell (sh -c on Unix, cmd.exe /C on
// Windows) with stdin/stdout/stderr inherited so the operator sees live
// output, plus the Context's GWM_* variables layered on top of the current
// environment.
func Run(ctx context.Context, phase, dir string, hookCmds []string, hookCtx Context, opts Options) (Result, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	env := append(append([]string(nil), os.Environ()...), hookCtx.Env()...)

	logger.Debug("hooks starting", "phase", phase, "count", len(hookCmds), "dir", dir)

	var result Result
	for i, cmd := range hookCmds {
		if cmd == "" {
			continue
		}

		start := time.Now()
		execCmd, err := shellCommand(ctx, cmd)
		if err != nil {
			return result, err
		}
		execCmd.Dir = dir
		execCmd.Env = env

		var hookStderr bytes.Buffer
		execCmd.Stdin = os.Stdin
		execCmd.Stdout = stdout
		execCmd.Stderr = io.MultiWriter(stderr, &hookStderr)

		runErr := execCmd.Run()
		duration := time.Since(start)

		if runErr == nil {
			result.Steps = append(result.Steps, Step{Command: cmd, Success: true, Duration: duration})
			result.ExecutedCount++
			logger.Debug("hook step succeeded", "phase", phase, "index", i+1, "duration", duration)
			continue
		}

		var exitErr *exec.ExitError
		exitCode := -1
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		result.Steps = append(result.Steps, Step{
			Command:  cmd,
			Success:  false,
			Duration: duration,
			ExitCode: exitCode,
			Error:    runErr.Error(),
		})
		result.Success = false
		result.FailedIndex = i + 1
		result.FailedCommand = cmd
		result.ExitCode = exitCode

		logger.Warn("hook step failed", "phase", phase, "index", i+1, "command", cmd, "exit_code", exitCode)

		return result, &HookError{
			Phase:    phase,
			Index:    i + 1,
			Command:  cmd,
			ExitCode: exitCode,
			Stderr:   hookStderr.String(),
		}
	}

	result.Success = true
	logger.Debug("hooks finished", "phase", phase, "executed", result.ExecutedCount)
	return result, nil
}

func shellCommand(ctx context.Context, script string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "windows":
		return exec.CommandContext(ctx, "cmd.exe", "/C", script), nil
	default:
		// Hook execution is explicitly user-configured and uses the system shell.
		return exec.CommandContext(ctx, "/bin/sh", "-c", script), nil //nolint:gosec
	}
}
