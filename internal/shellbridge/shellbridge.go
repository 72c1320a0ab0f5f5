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

// Package shellbridge implements the side-channel files that let gwm hand a
// directory change, and deferred hook execution, back to the parent shell
// wrapper: the process itself can never change its parent's working
// directory, so it writes the target path (and, for add, a hooks document)
// to files the wrapper reads after the process exits.
package shellbridge

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gwmhq/gwm/internal/hooks"
)

// CwdFileEnv names the environment variable carrying the cwd handoff file path.
const CwdFileEnv = "GWM_CWD_FILE"

// HooksFileEnv names the environment variable carrying the deferred-hooks
// document file path.
const HooksFileEnv = "GWM_HOOKS_FILE"

// WriteCwd writes dir to the file named by GWM_CWD_FILE, if set, instead of
// printing it to stdout. It reports whether the variable was set (and the
// write therefore performed).
func WriteCwd(dir string) (bool, error) {
	path := os.Getenv(CwdFileEnv)
	if path == "" {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(dir), 0o644); err != nil {
		return false, fmt.Errorf("write cwd handoff file %q: %w", path, err)
	}
	return true, nil
}

// DeferredHooksVersion is the current deferred-hooks document schema
// version. A re-invocation that reads a document with any other value
// rejects it rather than guessing at a compatible shape.
const DeferredHooksVersion = 1

// DeferredHooks is the versioned record written by the add pipeline and
// consumed by a re-invocation of the process after the parent shell has
// changed directory.
type DeferredHooks struct {
	Version       int      `json:"version"`
	WorktreePath  string   `json:"worktree_path"`
	BranchName    string   `json:"branch_name"`
	RepoRoot      string   `json:"repo_root"`
	RepoName      string   `json:"repo_name"`
	Commands      []string `json:"commands"`
	TrustVerified bool     `json:"trust_verified"`
}

// HookContext converts a DeferredHooks document into the contextual
// environment hooks.Run expects.
func (d DeferredHooks) HookContext() hooks.Context {
	return hooks.Context{
		WorktreePath: d.WorktreePath,
		BranchName:   d.BranchName,
		RepoRoot:     d.RepoRoot,
		RepoName:     d.RepoName,
	}
}

// WriteDeferredHooks writes doc (with Version filled in) to the file named
// by GWM_HOOKS_FILE, if set. It reports whether the variable was set.
func WriteDeferredHooks(doc DeferredHooks) (bool, error) {
	path := os.Getenv(HooksFileEnv)
	if path == "" {
		return false, nil
	}

	doc.Version = DeferredHooksVersion
	b, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("marshal deferred hooks document: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return false, fmt.Errorf("write deferred hooks file %q: %w", path, err)
	}
	return true, nil
}

// ReadDeferredHooks reads and validates a deferred-hooks document from path,
// rejecting any schema version other than DeferredHooksVersion.
func ReadDeferredHooks(path string) (DeferredHooks, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return DeferredHooks{}, fmt.Errorf("read deferred hooks file %q: %w", path, err)
	}

	var doc DeferredHooks
	if err := json.Unmarshal(b, &doc); err != nil {
		return DeferredHooks{}, fmt.Errorf("parse deferred hooks file %q: %w", path, err)
	}
	if doc.Version != DeferredHooksVersion {
		return DeferredHooks{}, fmt.Errorf("unsupported deferred hooks document version %d (want %d)", doc.Version, DeferredHooksVersion)
	}

	return doc, nil
}
