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

package gitops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gwmhq/gwm/internal/testutil"
)

func TestRepoNameFromRemote(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		url  string
		want string
		ok   bool
	}{
		"https":           {url: "https://github.com/owner/repo", want: "repo", ok: true},
		"https with .git": {url: "https://github.com/owner/repo.git", want: "repo", ok: true},
		"ssh shorthand":   {url: "git@github.com:owner/repo.git", want: "repo", ok: true},
		"ssh no .git":     {url: "git@github.com:owner/repo", want: "repo", ok: true},
		"empty":           {url: "", want: "", ok: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := RepoNameFromRemote(tc.url)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("RepoNameFromRemote(%q) = (%q, %v), want (%q, %v)", tc.url, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestRepoNameFallsBackToDirName(t *testing.T) {
	t.Parallel()

	g := testutil.Git(t)
	repoDir := filepath.Join(t.TempDir(), "my-project")
	testutil.InitRepo(t, g, repoDir)

	if got, want := RepoName(t.Context(), g, repoDir), "my-project"; got != want {
		t.Fatalf("RepoName() = %q, want %q", got, want)
	}
}

func TestStatusCountsUntracked(t *testing.T) {
	t.Parallel()

	g := testutil.Git(t)
	repoDir := filepath.Join(t.TempDir(), "repo")
	testutil.InitRepo(t, g, repoDir)

	if err := os.WriteFile(filepath.Join(repoDir, "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	status, err := Status(t.Context(), g, repoDir)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.Untracked != 1 {
		t.Fatalf("Untracked = %d, want 1", status.Untracked)
	}
	if !status.HasLocalChanges() {
		t.Fatalf("HasLocalChanges() = false, want true")
	}
}

func TestIsAncestor(t *testing.T) {
	t.Parallel()

	g := testutil.Git(t)
	repoDir := filepath.Join(t.TempDir(), "repo")
	testutil.InitRepo(t, g, repoDir)

	ok, err := IsAncestor(t.Context(), g, repoDir, "main", "main")
	if err != nil {
		t.Fatalf("IsAncestor() error: %v", err)
	}
	if !ok {
		t.Fatalf("expected main to be its own ancestor")
	}
}

func TestRefExists(t *testing.T) {
	t.Parallel()

	g := testutil.Git(t)
	repoDir := filepath.Join(t.TempDir(), "repo")
	testutil.InitRepo(t, g, repoDir)

	ok, err := RefExists(t.Context(), g, repoDir, "refs/heads/main")
	if err != nil {
		t.Fatalf("RefExists() error: %v", err)
	}
	if !ok {
		t.Fatalf("expected refs/heads/main to exist")
	}

	ok, err = RefExists(t.Context(), g, repoDir, "refs/heads/does-not-exist")
	if err != nil {
		t.Fatalf("RefExists() error: %v", err)
	}
	if ok {
		t.Fatalf("expected refs/heads/does-not-exist to not exist")
	}
}
