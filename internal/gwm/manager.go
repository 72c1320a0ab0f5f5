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

// Package gwm wires the git adapter, config, worktree model, trust engine,
// and the add/remove/clean pipelines into a single repository-scoped
// Manager, the entry point the command layer drives.
package gwm

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gwmhq/gwm/internal/add"
	"github.com/gwmhq/gwm/internal/config"
	"github.com/gwmhq/gwm/internal/errs"
	"github.com/gwmhq/gwm/internal/gitcmd"
	"github.com/gwmhq/gwm/internal/gitops"
	"github.com/gwmhq/gwm/internal/remove"
	"github.com/gwmhq/gwm/internal/repoctx"
	"github.com/gwmhq/gwm/internal/trust"
	"github.com/gwmhq/gwm/internal/worktree"
)

// ManagerOptions configures Manager construction.
type ManagerOptions struct {
	// StartDir is where repository discovery begins; os.Getwd() is used
	// when empty.
	StartDir string
	Logger   *slog.Logger
}

// Manager is bound to a single discovered repository and owns the git
// runner, resolved config, and trust cache that every pipeline shares.
type Manager struct {
	git gitcmd.Git

	repoCtx  repoctx.Context
	repoName string

	cfg                config.Config
	projectDefinesHooks bool
	projectConfigPath  string

	cache *trust.Cache

	logger *slog.Logger
}

// NewManager discovers the repository from opts.StartDir, loads config, and
// opens the trust cache.
func NewManager(ctx context.Context, opts ManagerOptions) (*Manager, error) {
	g, err := gitcmd.New()
	if err != nil {
		return nil, err
	}

	rc, err := repoctx.Discover(ctx, g, opts.StartDir)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, projectDefinesHooks, projectConfigPath, err := config.Load(rc.MainRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cachePath, err := trust.DefaultCachePath()
	if err != nil {
		return nil, fmt.Errorf("resolve trust cache path: %w", err)
	}
	cache := trust.Load(cachePath, logger)

	repoName := gitops.RepoName(ctx, g, rc.MainRoot)

	return &Manager{
		git:                g,
		repoCtx:            rc,
		repoName:           repoName,
		cfg:                cfg,
		projectDefinesHooks: projectDefinesHooks,
		projectConfigPath:  projectConfigPath,
		cache:              cache,
		logger:             logger,
	}, nil
}

// MainRoot returns the main worktree root.
func (m *Manager) MainRoot() string { return m.repoCtx.MainRoot }

// Git returns the git runner bound to this repository, for callers that need
// to run a raw git operation the Manager doesn't already expose.
func (m *Manager) Git() gitcmd.Git { return m.git }

// Config returns the resolved configuration.
func (m *Manager) Config() config.Config { return m.cfg }

// List returns every worktree, classified against the manager's start
// directory.
func (m *Manager) List(ctx context.Context) ([]worktree.Classified, error) {
	return worktree.List(ctx, m.git, m.repoCtx.MainRoot, m.repoCtx.StartDir)
}

// ListEnriched returns every worktree with sync/status/commit metadata.
func (m *Manager) ListEnriched(ctx context.Context) ([]worktree.Enriched, error) {
	classified, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	upstreamRef := func(c worktree.Classified) string {
		if c.Branch == "" {
			return ""
		}
		return "origin/" + c.Branch
	}

	return worktree.Enrich(ctx, m.git, classified, upstreamRef), nil
}

// Resolve finds the single worktree matching query exactly by branch name
// or worktree path, bypassing the picker. When nothing matches it returns
// errs.BranchNotFound(query), and callers fall back to the picker.
func (m *Manager) Resolve(ctx context.Context, query string) (worktree.Classified, error) {
	classified, err := m.List(ctx)
	if err != nil {
		return worktree.Classified{}, err
	}

	for _, c := range classified {
		if c.Path == query || c.Branch == query {
			return c, nil
		}
	}

	return worktree.Classified{}, errs.BranchNotFound(query)
}

// AddOptions configures a Manager.Add call, re-exporting the subset of
// add.Options the command layer fills in per-invocation.
type AddOptions struct {
	FromBranch   string
	IsRemote     bool
	SkipHooks    bool
	Interactive  bool
	ConfirmTrust func(outcome trust.Outcome) (string, error)

	// Stdout and Stderr receive live hook output so the operator sees it as
	// it runs, rather than after the fact.
	Stdout io.Writer
	Stderr io.Writer
}

// Add creates a new linked worktree for branch.
func (m *Manager) Add(ctx context.Context, branch string, opts AddOptions) (add.Result, error) {
	return add.Add(ctx, m.git, m.cfg, m.projectConfigPath, m.projectDefinesHooks, m.cache, branch, add.Options{
		RepoRoot:     m.repoCtx.MainRoot,
		CommonDir:    m.repoCtx.CommonDir,
		RepoName:     m.repoName,
		MainBranches: m.cfg.MainBranches,
		FromBranch:   opts.FromBranch,
		IsRemote:     opts.IsRemote,
		SkipHooks:    opts.SkipHooks,
		Stdout:       opts.Stdout,
		Stderr:       opts.Stderr,
		Interactive:  opts.Interactive,
		ConfirmTrust: opts.ConfirmTrust,
		Logger:       m.logger,
	})
}

// Remove removes the given worktrees.
func (m *Manager) Remove(ctx context.Context, items []worktree.Classified, opts remove.Options) ([]remove.ItemResult, error) {
	return remove.Remove(ctx, m.git, m.repoCtx.MainRoot, m.repoCtx.CommonDir, m.cfg.MainBranches, items, opts)
}

// CleanCandidates enumerates worktrees safe to discard automatically.
func (m *Manager) CleanCandidates(ctx context.Context) ([]remove.Candidate, error) {
	classified, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return remove.CleanCandidates(ctx, m.git, m.repoCtx.MainRoot, m.cfg.MainBranches, classified), nil
}

// RemoveCleanCandidate removes one candidate enumerated by CleanCandidates.
func (m *Manager) RemoveCleanCandidate(ctx context.Context, c remove.Candidate) error {
	return remove.RemoveCandidate(ctx, m.git, m.repoCtx.MainRoot, c)
}

// PullMain runs `git pull` in every worktree whose branch is a configured
// main branch.
func (m *Manager) PullMain(ctx context.Context) (map[string]error, error) {
	classified, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	results := map[string]error{}
	for _, c := range classified {
		if !worktree.IsMainBranch(c.Branch, m.cfg.MainBranches) {
			continue
		}
		results[c.Path] = gitops.Pull(ctx, m.git, c.Path)
	}

	return results, nil
}
