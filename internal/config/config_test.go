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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadDefaultsWhenNoFilesExist(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	repoRoot := t.TempDir()
	cfg, projectDefinesHooks, _, err := Load(repoRoot)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("Load() mismatch from Default() (-want +got):\n%s", diff)
	}
	if projectDefinesHooks {
		t.Fatalf("expected projectDefinesHooks = false")
	}
}

func TestProjectOverridesGlobalFieldByField(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	writeFile(t, filepath.Join(home, ".config", "gwm", "config.toml"), `
worktree_base_path = "~/from-global"
main_branches = ["main", "trunk"]
`)

	repoRoot := t.TempDir()
	writeFile(t, ProjectPath(repoRoot), `
main_branches = ["main"]

[hooks.post_create]
commands = ["npm install"]
`)

	cfg, projectDefinesHooks, _, err := Load(repoRoot)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.WorktreeBasePath != "~/from-global" {
		t.Fatalf("WorktreeBasePath = %q, want inherited global value", cfg.WorktreeBasePath)
	}
	if diff := cmp.Diff([]string{"main"}, cfg.MainBranches); diff != "" {
		t.Fatalf("MainBranches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"npm install"}, cfg.PostCreateCommands); diff != "" {
		t.Fatalf("PostCreateCommands mismatch (-want +got):\n%s", diff)
	}
	if !projectDefinesHooks {
		t.Fatalf("expected projectDefinesHooks = true")
	}
}

func TestCopyIgnoredFilesEnabledFalseOverridesDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	repoRoot := t.TempDir()
	writeFile(t, ProjectPath(repoRoot), `
[copy_ignored_files]
enabled = false
`)

	cfg, _, _, err := Load(repoRoot)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CopyIgnoredEnabled {
		t.Fatalf("expected CopyIgnoredEnabled = false")
	}
	if diff := cmp.Diff(Default().CopyPatterns, cfg.CopyPatterns); diff != "" {
		t.Fatalf("CopyPatterns should keep default when project omits it (-want +got):\n%s", diff)
	}
}
