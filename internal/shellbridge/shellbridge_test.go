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

package shellbridge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteCwdNoopWhenEnvUnset(t *testing.T) {
	t.Setenv(CwdFileEnv, "")

	wrote, err := WriteCwd("/some/path")
	if err != nil {
		t.Fatalf("WriteCwd() error: %v", err)
	}
	if wrote {
		t.Fatalf("expected WriteCwd to be a no-op when %s is unset", CwdFileEnv)
	}
}

func TestWriteCwdWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cwd")
	t.Setenv(CwdFileEnv, path)

	wrote, err := WriteCwd("/repo-worktrees/feature-x")
	if err != nil {
		t.Fatalf("WriteCwd() error: %v", err)
	}
	if !wrote {
		t.Fatalf("expected WriteCwd to write")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "/repo-worktrees/feature-x" {
		t.Fatalf("content = %q, want /repo-worktrees/feature-x", string(b))
	}
}

func TestDeferredHooksRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.json")
	t.Setenv(HooksFileEnv, path)

	doc := DeferredHooks{
		WorktreePath:  "/repo-worktrees/feature-x",
		BranchName:    "feature-x",
		RepoRoot:      "/repo",
		RepoName:      "repo",
		Commands:      []string{"npm install"},
		TrustVerified: true,
	}

	wrote, err := WriteDeferredHooks(doc)
	if err != nil {
		t.Fatalf("WriteDeferredHooks() error: %v", err)
	}
	if !wrote {
		t.Fatalf("expected WriteDeferredHooks to write")
	}

	got, err := ReadDeferredHooks(path)
	if err != nil {
		t.Fatalf("ReadDeferredHooks() error: %v", err)
	}
	if got.BranchName != "feature-x" || len(got.Commands) != 1 {
		t.Fatalf("got = %+v", got)
	}
}

func TestReadDeferredHooksRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.json")
	b, _ := json.Marshal(DeferredHooks{Version: 99})
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := ReadDeferredHooks(path); err == nil {
		t.Fatalf("expected error for unknown version")
	}
}
