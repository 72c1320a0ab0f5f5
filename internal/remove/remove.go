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

// Package remove implements the remove and clean pipelines: removing
// worktrees (with optional branch cleanup) and enumerating/removing
// candidates that are safe to discard automatically.
package remove

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gwmhq/gwm/internal/config"
	"github.com/gwmhq/gwm/internal/errs"
	"github.com/gwmhq/gwm/internal/gitcmd"
	"github.com/gwmhq/gwm/internal/gitops"
	"github.com/gwmhq/gwm/internal/lock"
	"github.com/gwmhq/gwm/internal/worktree"
)

// ErrDisabled is returned for an item classified Main or Active, which can
// never be removed.
var ErrDisabled = errors.New("worktree is main or active and cannot be removed")

// ItemResult reports the outcome for one worktree targeted by Remove.
type ItemResult struct {
	Path          string
	Branch        string
	Err           error
	BranchDeleted bool

	// WorktreeRemoved is true once `git worktree remove` itself has
	// succeeded. A non-nil Err alongside WorktreeRemoved true means the
	// worktree is gone but its branch cleanup failed, a materially
	// different outcome from Err with WorktreeRemoved false (the worktree
	// still exists).
	WorktreeRemoved bool
}

// Options configures a Remove invocation.
type Options struct {
	Force       bool
	BranchMode  config.CleanBranchMode
	ConfirmYN   func(branch string) (bool, error) // used only when BranchMode == Ask
}

// Remove removes each selected worktree: `git worktree remove [--force] <path>`,
// then applies the branch-cleanup mode. The process-level result is failure
// only when every item failed; a mix of success and failure is still
// success overall, so the aggregate error is built from errors.Join but
// callers should inspect the per-item results to report precisely.
func Remove(ctx context.Context, g gitcmd.Git, repoRoot, commonDir string, mainBranches []string, items []worktree.Classified, opts Options) ([]ItemResult, error) {
	lockPath := filepath.Join(commonDir, "gwm.lock")
	l, err := lock.Acquire(ctx, lockPath, 30*time.Second)
	if err != nil {
		return nil, err
	}
	defer func() { _ = l.Release() }()

	results := make([]ItemResult, 0, len(items))
	failures := 0

	for _, item := range items {
		res := ItemResult{Path: item.Path, Branch: item.Branch}

		if item.IsMain || item.IsActive {
			res.Err = ErrDisabled
			results = append(results, res)
			failures++
			continue
		}

		if !opts.Force {
			if status, err := gitops.Status(ctx, g, item.Path); err == nil && status.HasLocalChanges() {
				res.Err = errs.Wrap(errs.KindUncommittedChanges, fmt.Sprintf("worktree %q has uncommitted changes", item.Path), errs.ErrUncommittedChanges).
					WithDetail("path", item.Path).
					WithSuggestions(
						errs.Suggestion{Description: "Remove anyway, discarding local changes", Command: "gwm remove --force " + item.Path},
						errs.Suggestion{Description: "Commit or stash first, then retry", Command: "git -C " + item.Path + " status"},
					)
				results = append(results, res)
				failures++
				continue
			}
		}

		args := []string{"worktree", "remove"}
		if opts.Force {
			args = append(args, "--force")
		}
		args = append(args, item.Path)

		if _, err := g.Run(ctx, repoRoot, args...); err != nil {
			res.Err = err
			results = append(results, res)
			failures++
			continue
		}
		res.WorktreeRemoved = true

		if item.Branch != "" {
			deleted, err := cleanupBranch(ctx, g, repoRoot, item.Branch, mainBranches, opts)
			if err != nil {
				res.Err = err
			}
			res.BranchDeleted = deleted
		}

		results = append(results, res)
	}

	if len(items) > 0 && failures == len(items) {
		var errs []error
		for _, r := range results {
			if r.Err != nil {
				errs = append(errs, r.Err)
			}
		}
		return results, errors.Join(errs...)
	}

	return results, nil
}

func cleanupBranch(ctx context.Context, g gitcmd.Git, repoRoot, branch string, mainBranches []string, opts Options) (bool, error) {
	switch opts.BranchMode {
	case config.CleanBranchNever, "":
		return false, nil

	case config.CleanBranchAsk:
		yes := true
		if opts.ConfirmYN != nil {
			var err error
			yes, err = opts.ConfirmYN(branch)
			if err != nil {
				return false, err
			}
		}
		if !yes {
			return false, nil
		}
		return deleteBranch(ctx, g, repoRoot, branch, mainBranches)

	case config.CleanBranchAuto:
		return deleteBranch(ctx, g, repoRoot, branch, mainBranches)

	default:
		return false, fmt.Errorf("unknown branch cleanup mode %q", opts.BranchMode)
	}
}

func deleteBranch(ctx context.Context, g gitcmd.Git, repoRoot, branch string, mainBranches []string) (bool, error) {
	merged, err := mergedIntoAnyMain(ctx, g, repoRoot, branch, mainBranches)
	if err != nil {
		return false, err
	}

	flag := "-D"
	if merged {
		flag = "-d"
	}
	if _, err := g.Run(ctx, repoRoot, "branch", flag, branch); err != nil {
		return false, err
	}
	return true, nil
}

// mergedIntoAnyMain reports whether branch is merged into any configured
// main branch: merge-base --is-ancestor <branch> <m> succeeds for some m. A
// genuine git failure (as opposed to IsAncestor's ordinary "not an ancestor"
// result) is propagated rather than swallowed, since deleteBranch treats an
// unmerged branch as a force-delete (-D) candidate and a silently-discarded
// error here would force-delete a branch that was never actually checked.
func mergedIntoAnyMain(ctx context.Context, g gitcmd.Git, repoRoot, branch string, mainBranches []string) (bool, error) {
	var lastErr error
	for _, m := range mainBranches {
		ok, err := gitops.IsAncestor(ctx, g, repoRoot, branch, m)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, lastErr
}

// Candidate is a worktree enumerated by Clean as safe to discard
// automatically.
type Candidate struct {
	Path   string
	Branch string
}

// CleanCandidates enumerates worktrees that are: not Main/Active, whose
// branch is not itself a main branch, whose remote-tracking branch is
// deleted or is an ancestor of some origin/<main>, and which have no local
// changes (staged, unstaged, untracked, or unpushed). A worktree whose
// change probe fails is conservatively treated as having local changes and
// excluded.
func CleanCandidates(ctx context.Context, g gitcmd.Git, repoRoot string, mainBranches []string, items []worktree.Classified) []Candidate {
	var out []Candidate

	for _, item := range items {
		if item.IsMain || item.IsActive {
			continue
		}
		if item.Branch == "" || worktree.IsMainBranch(item.Branch, mainBranches) {
			continue
		}

		remoteGone, err := isRemoteGoneOrMerged(ctx, g, repoRoot, item.Branch, mainBranches)
		if err != nil || !remoteGone {
			continue
		}

		status, err := gitops.Status(ctx, g, item.Path)
		if err != nil {
			continue // conservative: probe failure excludes the candidate
		}
		if status.HasLocalChanges() {
			continue
		}

		upstreamGone, err := hasNoUpstream(ctx, g, repoRoot, item.Branch)
		if err != nil {
			continue
		}
		if !upstreamGone {
			hasUnpushed, err := gitops.HasUnpushedCommits(ctx, g, item.Path, "origin/"+item.Branch)
			if err != nil || hasUnpushed {
				continue
			}
		}

		out = append(out, Candidate{Path: item.Path, Branch: item.Branch})
	}

	return out
}

func isRemoteGoneOrMerged(ctx context.Context, g gitcmd.Git, repoRoot, branch string, mainBranches []string) (bool, error) {
	exists, err := gitops.RefExists(ctx, g, repoRoot, "refs/remotes/origin/"+branch)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	origins := make([]string, len(mainBranches))
	for i, m := range mainBranches {
		origins[i] = "origin/" + m
	}
	return mergedIntoAnyMain(ctx, g, repoRoot, branch, origins)
}

func hasNoUpstream(ctx context.Context, g gitcmd.Git, repoRoot, branch string) (bool, error) {
	exists, err := gitops.RefExists(ctx, g, repoRoot, "refs/remotes/origin/"+branch)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// RemoveCandidate removes a clean candidate's worktree and deletes its
// branch with -d (never -D: Clean only ever removes branches it has already
// proven are no longer needed).
func RemoveCandidate(ctx context.Context, g gitcmd.Git, repoRoot string, c Candidate) error {
	if _, err := g.Run(ctx, repoRoot, "worktree", "remove", c.Path); err != nil {
		return err
	}
	if c.Branch == "" {
		return nil
	}
	_, err := g.Run(ctx, repoRoot, "branch", "-d", c.Branch)
	return err
}
