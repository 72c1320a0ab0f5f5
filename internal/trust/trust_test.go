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

package trust

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDecideNoHooks(t *testing.T) {
	t.Parallel()

	c := Load(filepath.Join(t.TempDir(), "trusted_repos.json"), nil)
	outcome, err := c.Decide(t.TempDir(), nil, false, "")
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if outcome.Kind != NoHooks {
		t.Fatalf("Kind = %v, want NoHooks", outcome.Kind)
	}
}

func TestDecideGlobalConfig(t *testing.T) {
	t.Parallel()

	c := Load(filepath.Join(t.TempDir(), "trusted_repos.json"), nil)
	outcome, err := c.Decide(t.TempDir(), []string{"npm install"}, false, "")
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if outcome.Kind != GlobalConfig {
		t.Fatalf("Kind = %v, want GlobalConfig", outcome.Kind)
	}
}

func TestDecideFirstTimeThenTrustThenTrusted(t *testing.T) {
	t.Parallel()

	repoRoot := t.TempDir()
	configPath := writeConfig(t, repoRoot, `[hooks.post_create]
commands = ["npm install"]
`)
	cachePath := filepath.Join(t.TempDir(), "trusted_repos.json")

	c := Load(cachePath, nil)
	outcome, err := c.Decide(repoRoot, []string{"npm install"}, true, configPath)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if outcome.Kind != NeedsConfirmation || outcome.Reason != ReasonFirstTime {
		t.Fatalf("outcome = %+v, want NeedsConfirmation/FirstTime", outcome)
	}

	if err := c.Trust(repoRoot, outcome, time.Unix(0, 0).UTC()); err != nil {
		t.Fatalf("Trust() error: %v", err)
	}

	reloaded := Load(cachePath, nil)
	outcome2, err := reloaded.Decide(repoRoot, []string{"npm install"}, true, configPath)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if outcome2.Kind != Trusted {
		t.Fatalf("Kind = %v, want Trusted", outcome2.Kind)
	}
}

func TestDecideConfigChanged(t *testing.T) {
	t.Parallel()

	repoRoot := t.TempDir()
	configPath := writeConfig(t, repoRoot, `[hooks.post_create]
commands = ["npm install"]
`)
	cachePath := filepath.Join(t.TempDir(), "trusted_repos.json")

	c := Load(cachePath, nil)
	outcome, err := c.Decide(repoRoot, []string{"npm install"}, true, configPath)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if err := c.Trust(repoRoot, outcome, time.Now()); err != nil {
		t.Fatalf("Trust() error: %v", err)
	}

	if err := os.WriteFile(configPath, []byte(`[hooks.post_create]
commands = ["npm install", "npm test"]
`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	outcome2, err := c.Decide(repoRoot, []string{"npm install", "npm test"}, true, configPath)
	if err != nil {
		t.Fatalf("Decide() error: %v", err)
	}
	if outcome2.Kind != NeedsConfirmation || outcome2.Reason != ReasonConfigChanged {
		t.Fatalf("outcome = %+v, want NeedsConfirmation/ConfigChanged", outcome2)
	}
}

func TestLoadPrunesMissingRepoDirs(t *testing.T) {
	t.Parallel()

	cachePath := filepath.Join(t.TempDir(), "trusted_repos.json")
	c := Load(cachePath, nil)

	missingRoot := filepath.Join(t.TempDir(), "does-not-exist")
	outcome := Outcome{ConfigPath: "x", ConfigHash: "h", Commands: []string{"x"}}
	if err := c.Trust(missingRoot, outcome, time.Now()); err != nil {
		t.Fatalf("Trust() error: %v", err)
	}

	reloaded := Load(cachePath, nil)
	if _, ok := reloaded.doc.Repos[missingRoot]; ok {
		t.Fatalf("expected missing repo root to be pruned on load")
	}
}

func TestHashConfigRejectsOversizedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "big.toml")
	if err := os.WriteFile(path, make([]byte, maxConfigSize+1), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := HashConfig(path); err == nil {
		t.Fatalf("expected error for oversized config file")
	}
}
