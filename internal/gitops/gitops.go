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

// Package gitops implements the higher-level git operations the worktree
// model, add, remove, and clean pipelines need beyond the raw gitcmd.Git
// call surface: ahead/behind counts, working-tree status, commit metadata,
// remote refreshes, ancestor checks, and repository name derivation.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gwmhq/gwm/internal/gitcmd"
)

// SyncStatus reports the ahead/behind count of HEAD against a remote-tracking ref.
type SyncStatus struct {
	Ahead  int
	Behind int
}

// AheadBehind returns how many commits HEAD is ahead of and behind ref
// (typically "origin/<branch>"). Callers treat a failure (e.g. the remote
// ref doesn't exist) as "no sync status available".
func AheadBehind(ctx context.Context, g gitcmd.Git, dir, ref string) (SyncStatus, error) {
	res, err := g.Run(ctx, dir, "rev-list", "--left-right", "--count", "HEAD..."+ref)
	if err != nil {
		return SyncStatus{}, err
	}

	fields := strings.Fields(res.Stdout)
	if len(fields) != 2 {
		return SyncStatus{}, fmt.Errorf("unexpected rev-list output: %q", res.Stdout)
	}

	ahead, err := strconv.Atoi(fields[0])
	if err != nil {
		return SyncStatus{}, fmt.Errorf("parse ahead count: %w", err)
	}
	behind, err := strconv.Atoi(fields[1])
	if err != nil {
		return SyncStatus{}, fmt.Errorf("parse behind count: %w", err)
	}

	return SyncStatus{Ahead: ahead, Behind: behind}, nil
}

// ChangeStatus summarizes `git status --porcelain` output.
type ChangeStatus struct {
	Modified     int
	Added        int
	Deleted      int
	Untracked    int
	ChangedFiles []string // at most 5 entries
}

// HasLocalChanges reports whether any counted category is non-zero.
func (c ChangeStatus) HasLocalChanges() bool {
	return c.Modified > 0 || c.Added > 0 || c.Deleted > 0 || c.Untracked > 0
}

// Status runs `git status --porcelain` in dir and summarizes it.
func Status(ctx context.Context, g gitcmd.Git, dir string) (ChangeStatus, error) {
	res, err := g.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return ChangeStatus{}, err
	}

	var out ChangeStatus
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line == "" {
			continue
		}
		if len(line) < 3 {
			continue
		}
		x, y := line[0], line[1]
		path := strings.TrimSpace(line[3:])

		switch {
		case x == '?' && y == '?':
			out.Untracked++
		case x == 'A' || y == 'A':
			out.Added++
		case x == 'D' || y == 'D':
			out.Deleted++
		default:
			out.Modified++
		}

		if len(out.ChangedFiles) < 5 {
			out.ChangedFiles = append(out.ChangedFiles, path)
		}
	}

	return out, nil
}

// HasUnpushedCommits reports whether HEAD has commits ref (the upstream)
// lacks, i.e. ahead > 0 against ref.
func HasUnpushedCommits(ctx context.Context, g gitcmd.Git, dir, ref string) (bool, error) {
	sync, err := AheadBehind(ctx, g, dir, ref)
	if err != nil {
		return false, err
	}
	return sync.Ahead > 0, nil
}

// CommitMeta describes the latest commit in a worktree.
type CommitMeta struct {
	DateISO string
	Author  string
	Subject string
}

// LatestCommit runs `git log -1` with a format string and parses the result.
func LatestCommit(ctx context.Context, g gitcmd.Git, dir string) (CommitMeta, error) {
	const sep = "\x1f"
	res, err := g.Run(ctx, dir, "log", "-1", "--format=%cI"+sep+"%an"+sep+"%s")
	if err != nil {
		return CommitMeta{}, err
	}

	parts := strings.SplitN(res.Stdout, sep, 3)
	if len(parts) != 3 {
		return CommitMeta{}, fmt.Errorf("unexpected log output: %q", res.Stdout)
	}

	return CommitMeta{DateISO: parts[0], Author: parts[1], Subject: parts[2]}, nil
}

// FetchPrune runs `git fetch --prune origin`. It is intended to be invoked
// from a goroutine by callers that treat it as the one asynchronous,
// slow-network operation named in the concurrency model.
func FetchPrune(ctx context.Context, g gitcmd.Git, dir string) error {
	_, err := g.Run(ctx, dir, "fetch", "--prune", "origin")
	return err
}

// RemoteBranch is one entry from ForEachRemoteRef.
type RemoteBranch struct {
	Name    string
	DateISO string
	Author  string
	Subject string
}

// ForEachRemoteRef enumerates remote-tracking branches (excluding HEAD).
func ForEachRemoteRef(ctx context.Context, g gitcmd.Git, dir string) ([]RemoteBranch, error) {
	const sep = "\x1f"
	res, err := g.Run(ctx, dir, "for-each-ref", "refs/remotes",
		"--format=%(refname:short)"+sep+"%(committerdate:iso-strict)"+sep+"%(authorname)"+sep+"%(subject)")
	if err != nil {
		return nil, err
	}

	var out []RemoteBranch
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, sep, 4)
		if len(parts) != 4 {
			continue
		}
		if strings.HasSuffix(parts[0], "/HEAD") {
			continue
		}
		out = append(out, RemoteBranch{Name: parts[0], DateISO: parts[1], Author: parts[2], Subject: parts[3]})
	}

	return out, nil
}

// IsAncestor reports whether commit-ish a is an ancestor of commit-ish b.
func IsAncestor(ctx context.Context, g gitcmd.Git, dir, a, b string) (bool, error) {
	_, err := g.Run(ctx, dir, "merge-base", "--is-ancestor", a, b)
	if err == nil {
		return true, nil
	}

	var ee *gitcmd.ExitError
	if errors.As(err, &ee) && ee.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

// RefExists reports whether ref resolves via `show-ref --verify`.
func RefExists(ctx context.Context, g gitcmd.Git, dir, ref string) (bool, error) {
	_, err := g.Run(ctx, dir, "show-ref", "--verify", "--quiet", ref)
	if err == nil {
		return true, nil
	}

	var ee *gitcmd.ExitError
	if errors.As(err, &ee) && ee.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

// Pull runs `git pull` in dir.
func Pull(ctx context.Context, g gitcmd.Git, dir string) error {
	_, err := g.Run(ctx, dir, "pull")
	return err
}

var (
	httpsRemoteRE = regexp.MustCompile(`^https?://[^/]+/(?:[^/]+/)*?([^/]+?)(?:\.git)?/?$`)
	sshRemoteRE   = regexp.MustCompile(`^[\w.-]+@[\w.-]+:(?:[^/]+/)*?([^/]+?)(?:\.git)?$`)
)

// RepoNameFromRemote parses an `origin` remote URL into a short repository
// name. Both "https://host/owner/repo(.git)?" and
// "user@host:owner/repo(.git)?" forms collapse to "repo".
func RepoNameFromRemote(remoteURL string) (string, bool) {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return "", false
	}

	if m := httpsRemoteRE.FindStringSubmatch(remoteURL); m != nil {
		return m[1], true
	}
	if m := sshRemoteRE.FindStringSubmatch(remoteURL); m != nil {
		return m[1], true
	}

	// Fall back to generic URL parsing for other schemes (ssh://, git://).
	if u, err := url.Parse(remoteURL); err == nil && u.Path != "" {
		base := filepath.Base(strings.TrimSuffix(u.Path, "/"))
		base = strings.TrimSuffix(base, ".git")
		if base != "" && base != "." && base != "/" {
			return base, true
		}
	}

	return "", false
}

// RepoName derives the repository name for dir: the origin remote URL if one
// exists, else the directory's own base name, else the literal "unknown".
func RepoName(ctx context.Context, g gitcmd.Git, dir string) string {
	res, err := g.Run(ctx, dir, "remote", "get-url", "origin")
	if err == nil {
		if name, ok := RepoNameFromRemote(strings.TrimSpace(res.Stdout)); ok {
			return name
		}
	}

	if base := filepath.Base(dir); base != "" && base != "." && base != string(filepath.Separator) {
		return base
	}

	return "unknown"
}
