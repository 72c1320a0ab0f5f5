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

// Package add implements the worktree creation pipeline: path derivation,
// branch mode resolution, ignored-file copy, trust-gated hook execution, and
// shell handoff.
package add

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gwmhq/gwm/internal/config"
	"github.com/gwmhq/gwm/internal/copy"
	"github.com/gwmhq/gwm/internal/errs"
	"github.com/gwmhq/gwm/internal/gitcmd"
	"github.com/gwmhq/gwm/internal/gitops"
	"github.com/gwmhq/gwm/internal/hooks"
	"github.com/gwmhq/gwm/internal/lock"
	"github.com/gwmhq/gwm/internal/naming"
	"github.com/gwmhq/gwm/internal/shellbridge"
	"github.com/gwmhq/gwm/internal/trust"
)

// ErrAlreadyExists is returned when a worktree already exists at the
// derived path.
var ErrAlreadyExists = errors.New("worktree already exists at that path")

// Options configures one Add invocation.
type Options struct {
	RepoRoot    string
	CommonDir   string
	RepoName    string
	MainBranches []string
	FromBranch  string
	IsRemote    bool
	SkipHooks   bool
	Interactive bool

	// ConfirmTrust is consulted only when the trust engine returns
	// NeedsConfirmation and Interactive is true. It returns one of
	// "trust", "once", or "cancel".
	ConfirmTrust func(outcome trust.Outcome) (string, error)

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Result describes what Add did.
type Result struct {
	WorktreePath string
	Branch       string
	CopyResult   copy.Result
	HookResult   *hooks.Result
	HooksSkipped string // reason hooks did not run inline (none configured, skipped, or deferred); empty when they ran
	DeferredToShell bool
}

// DerivePath computes <expanded worktree_base_path>/<repo_name>/<sanitized(branch)>.
func DerivePath(cfg config.Config, repoName, branch string) (string, error) {
	base, err := cfg.ExpandedWorktreeBasePath()
	if err != nil {
		return "", fmt.Errorf("expand worktree base path: %w", err)
	}
	return filepath.Join(base, repoName, naming.SanitizeBranchName(branch)), nil
}

// Add creates a new linked worktree for branch and runs the full pipeline.
func Add(ctx context.Context, g gitcmd.Git, cfg config.Config, projectConfigPath string, projectDefinesHooks bool, cache *trust.Cache, branch string, opts Options) (Result, error) {
	if err := naming.ValidateBranchName(branch); err != nil {
		return Result{}, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	worktreePath, err := DerivePath(cfg, opts.RepoName, branch)
	if err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(worktreePath); err == nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAlreadyExists, errs.BranchExists(branch))
	}

	if err := os.MkdirAll(filepath.Dir(worktreePath), 0o755); err != nil {
		return Result{}, fmt.Errorf("create worktree parent dir: %w", err)
	}

	// The lock is held only across the git-metadata mutation and the ignored-
	// file copy, not the hook pipeline below: hooks (e.g. a package install)
	// can run well past the lock's 30s timeout, and nothing about running
	// them touches shared worktree/branch state that a concurrent add or
	// remove could corrupt.
	lockPath := filepath.Join(opts.CommonDir, "gwm.lock")
	l, err := lock.Acquire(ctx, lockPath, 30*time.Second)
	if err != nil {
		return Result{}, err
	}

	if err := createWorktree(ctx, g, opts.RepoRoot, worktreePath, branch, opts.IsRemote, opts.FromBranch, cfg.MainBranches); err != nil {
		_ = l.Release()
		return Result{}, err
	}

	logger.Info("worktree created", "path", worktreePath, "branch", branch)

	result := Result{WorktreePath: worktreePath, Branch: branch}

	if cfg.CopyIgnoredEnabled {
		venvFilter := copy.NoVirtualEnvFilter
		if cfg.IsolateVirtualEnvs {
			venvFilter = virtualEnvFilter(cfg.VirtualEnvPatterns)
		}
		copyResult, err := copy.CopyIgnoredFiles(ctx, g, opts.RepoRoot, worktreePath, cfg.CopyPatterns, cfg.CopyExcludePatterns, venvFilter)
		if err != nil {
			logger.Warn("ignored-file copy failed", "error", err)
		} else {
			result.CopyResult = copyResult
		}
	}

	_ = l.Release()

	if opts.SkipHooks {
		result.HooksSkipped = "skipped by request"
		if err := handoff(worktreePath, nil, opts); err != nil {
			return result, err
		}
		return result, nil
	}

	commands := cfg.PostCreateCommandsOrEmpty()
	outcome, err := cache.Decide(opts.RepoRoot, commands, projectDefinesHooks, projectConfigPath)
	if err != nil {
		return result, fmt.Errorf("trust decision: %w", err)
	}

	switch outcome.Kind {
	case trust.NoHooks:
		result.HooksSkipped = "no hooks configured"
	case trust.GlobalConfig, trust.Trusted:
		if err := runOrDeferHooks(ctx, opts, worktreePath, branch, commands, &result); err != nil {
			return result, err
		}
	case trust.NeedsConfirmation:
		decision := "cancel"
		if opts.Interactive && opts.ConfirmTrust != nil {
			decision, err = opts.ConfirmTrust(outcome)
			if err != nil {
				return result, err
			}
		} else {
			logger.Warn("hooks declined: project not yet trusted", "commands", outcome.Commands)
			result.HooksSkipped = "declined: project hooks not trusted (non-interactive)"
			break
		}

		switch decision {
		case "trust":
			if err := cache.Trust(opts.RepoRoot, outcome, time.Now()); err != nil {
				return result, fmt.Errorf("persist trust decision: %w", err)
			}
			if err := runOrDeferHooks(ctx, opts, worktreePath, branch, commands, &result); err != nil {
				return result, err
			}
		case "once":
			if err := runOrDeferHooks(ctx, opts, worktreePath, branch, commands, &result); err != nil {
				return result, err
			}
		default:
			result.HooksSkipped = "cancelled by operator"
		}
	}

	if err := handoff(worktreePath, result.HookResult, opts); err != nil {
		return result, err
	}

	return result, nil
}

// runOrDeferHooks runs commands inline unless GWM_HOOKS_FILE is set, in
// which case a deferred-hooks document is written for the shell wrapper to
// execute via --run-deferred-hooks after it changes directory (§4.3(d)).
// Reaching this function at all means a trust decision already cleared
// commands to run, so the document's TrustVerified is always true.
func runOrDeferHooks(ctx context.Context, opts Options, worktreePath, branch string, commands []string, result *Result) error {
	if path := os.Getenv(shellbridge.HooksFileEnv); path != "" {
		wrote, err := shellbridge.WriteDeferredHooks(shellbridge.DeferredHooks{
			WorktreePath:  worktreePath,
			BranchName:    branch,
			RepoRoot:      opts.RepoRoot,
			RepoName:      opts.RepoName,
			Commands:      commands,
			TrustVerified: true,
		})
		if err != nil {
			return fmt.Errorf("write deferred hooks document: %w", err)
		}
		if wrote {
			result.HooksSkipped = "deferred to shell re-invocation"
			result.DeferredToShell = true
			return nil
		}
	}

	return runHooksNow(ctx, opts, worktreePath, branch, commands, result)
}

func runHooksNow(ctx context.Context, opts Options, worktreePath, branch string, commands []string, result *Result) error {
	hookCtx := hooks.Context{
		WorktreePath: worktreePath,
		BranchName:   branch,
		RepoRoot:     opts.RepoRoot,
		RepoName:     opts.RepoName,
	}

	hookResult, err := hooks.Run(ctx, "postCreate", worktreePath, commands, hookCtx, hooks.Options{
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		Logger: opts.Logger,
	})
	result.HookResult = &hookResult
	if err != nil {
		return fmt.Errorf("post-create hooks: %w", err)
	}
	return nil
}

// handoff writes the cwd side-channel file when set. Deferring hooks to a
// shell wrapper is decided earlier, in runOrDeferHooks, which writes the
// deferred-hooks document when GWM_HOOKS_FILE is set.
func handoff(worktreePath string, _ *hooks.Result, _ Options) error {
	_, err := shellbridge.WriteCwd(worktreePath)
	return err
}

// createWorktree implements the exact branch-mode resolution order:
// local branch exists -> track it; else is_remote -> track origin/<branch>;
// else -> new branch from fromBranch, else first(main_branches), else "main".
func createWorktree(ctx context.Context, g gitcmd.Git, repoRoot, worktreePath, branch string, isRemote bool, fromBranch string, mainBranches []string) error {
	localExists, err := gitops.RefExists(ctx, g, repoRoot, "refs/heads/"+branch)
	if err != nil {
		return err
	}

	if localExists {
		_, err := g.Run(ctx, repoRoot, "worktree", "add", worktreePath, branch)
		return err
	}

	if isRemote {
		_, err := g.Run(ctx, repoRoot, "worktree", "add", worktreePath, "-b", branch, "origin/"+branch)
		return err
	}

	base := fromBranch
	if base == "" && len(mainBranches) > 0 {
		base = mainBranches[0]
	}
	if base == "" {
		base = "main"
	}

	_, err = g.Run(ctx, repoRoot, "worktree", "add", worktreePath, "-b", branch, base)
	return err
}

func virtualEnvFilter(patterns []string) copy.VirtualEnvFilter {
	return func(rel string) bool {
		segments := strings.Split(rel, "/")
		for _, seg := range segments {
			for _, p := range patterns {
				if seg == p {
					return true
				}
			}
		}
		return false
	}
}
