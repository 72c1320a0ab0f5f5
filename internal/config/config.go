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

// Package config loads and merges the gwm TOML configuration: a global file
// under the user's config directory and an optional per-repository project
// file, merged field-by-field with the project taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/gwmhq/gwm/internal/pathutil"
)

// CleanBranchMode controls whether Remove deletes the local branch after a
// successful worktree removal.
type CleanBranchMode string

const (
	CleanBranchAuto  CleanBranchMode = "auto"
	CleanBranchAsk   CleanBranchMode = "ask"
	CleanBranchNever CleanBranchMode = "never"
)

// CopyIgnoredFiles configures the post-create ignored-file copy step.
type CopyIgnoredFiles struct {
	Enabled         *bool    `toml:"enabled"`
	Patterns        []string `toml:"patterns"`
	ExcludePatterns []string `toml:"exclude_patterns"`
}

// VirtualEnvHandling configures the virtual-env exclusion knob that narrows
// ignored-file copy: directories that look like package/dependency caches
// are skipped rather than copied wholesale.
type VirtualEnvHandling struct {
	IsolateVirtualEnvs *bool    `toml:"isolate_virtual_envs"`
	Mode               string   `toml:"mode"`
	CustomPatterns     []string `toml:"custom_patterns"`
	MaxSizeMB          *int     `toml:"max_size_mb"`
	MaxDepth           *int     `toml:"max_depth"`
}

// PostCreateHooks configures the post-create hook list.
type PostCreateHooks struct {
	Enabled  *bool    `toml:"enabled"`
	Commands []string `toml:"commands"`
}

// Hooks groups the hook phases gwm exposes. Only post_create exists today.
type Hooks struct {
	PostCreate PostCreateHooks `toml:"post_create"`
}

// raw is the on-disk TOML shape. Pointer/zero-value fields distinguish
// "absent" from "explicitly set to the zero value" during merge.
type raw struct {
	WorktreeBasePath   string              `toml:"worktree_base_path"`
	MainBranches       []string            `toml:"main_branches"`
	CleanBranch        string              `toml:"clean_branch"`
	CopyIgnoredFiles   CopyIgnoredFiles    `toml:"copy_ignored_files"`
	VirtualEnvHandling VirtualEnvHandling  `toml:"virtual_env_handling"`
	Hooks              Hooks               `toml:"hooks"`
}

// Config is the fully resolved, immutable configuration threaded through the
// pipelines after merge. It is a value, not a singleton: Load parses it once
// per process and callers pass it explicitly.
type Config struct {
	WorktreeBasePath string
	MainBranches     []string
	CleanBranch      CleanBranchMode

	CopyIgnoredEnabled  bool
	CopyPatterns        []string
	CopyExcludePatterns []string

	IsolateVirtualEnvs   bool
	VirtualEnvMode       string
	VirtualEnvPatterns   []string
	VirtualEnvMaxSizeMB  int
	VirtualEnvMaxDepth   int

	PostCreateEnabled  bool
	PostCreateCommands []string
}

// Default returns the built-in default configuration (spec.md §6).
func Default() Config {
	return Config{
		WorktreeBasePath:    "~/git-worktrees",
		MainBranches:        []string{"main", "master", "develop"},
		CleanBranch:         CleanBranchAsk,
		CopyIgnoredEnabled:  true,
		CopyPatterns:        []string{".env", ".env.*", ".env.local", ".env.*.local"},
		CopyExcludePatterns: []string{".env.example", ".env.sample"},
		VirtualEnvMode:      "exclude",
		VirtualEnvPatterns:  []string{".venv", "venv", "node_modules", "__pycache__"},
		VirtualEnvMaxSizeMB: 0,
		VirtualEnvMaxDepth:  0,
		PostCreateEnabled:   true,
		PostCreateCommands:  nil,
	}
}

// PostCreateCommandsOrEmpty returns the post-create commands that would
// actually run, honoring the enabled flag.
func (c Config) PostCreateCommandsOrEmpty() []string {
	if !c.PostCreateEnabled {
		return nil
	}
	return c.PostCreateCommands
}

// ExpandedWorktreeBasePath expands a leading "~" in WorktreeBasePath.
func (c Config) ExpandedWorktreeBasePath() (string, error) {
	return pathutil.ExpandTilde(c.WorktreeBasePath)
}

// GlobalPath returns the global config file path: ~/.config/gwm/config.toml,
// falling back to ~/.gwmrc when that doesn't exist.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	primary := filepath.Join(home, ".config", "gwm", "config.toml")
	if _, err := os.Stat(primary); err == nil {
		return primary, nil
	}

	fallback := filepath.Join(home, ".gwmrc")
	if _, err := os.Stat(fallback); err == nil {
		return fallback, nil
	}

	return primary, nil
}

// ProjectPath returns the project config file path for a repository root.
func ProjectPath(repoRoot string) string {
	return filepath.Join(repoRoot, "gwm", "config.toml")
}

// Load reads and merges the global and project config files (either or both
// may be absent) and returns the resolved Config along with whether the
// project file defined any post-create hooks at all (used by the trust
// engine to distinguish NoHooks/GlobalConfig from project-owned hooks).
func Load(repoRoot string) (cfg Config, projectDefinesHooks bool, projectConfigPath string, err error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return Config{}, false, "", err
	}

	var globalRaw raw
	if err := readTOML(globalPath, &globalRaw); err != nil {
		return Config{}, false, "", err
	}

	projectConfigPath = ProjectPath(repoRoot)
	var projectRaw raw
	if err := readTOML(projectConfigPath, &projectRaw); err != nil {
		return Config{}, false, "", err
	}

	merged := Default()
	merged = mergeRaw(merged, globalRaw)
	merged = mergeRaw(merged, projectRaw)

	return merged, projectRaw.Hooks.PostCreate.Enabled != nil || len(projectRaw.Hooks.PostCreate.Commands) > 0, projectConfigPath, nil
}

// readTOML decodes path into dst if it exists. A missing file is not an
// error (dst is left at its zero value); malformed content is.
func readTOML(path string, dst *raw) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat config %q: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, dst); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

// mergeRaw applies override on top of base, field-by-field: scalars replace
// when set to a non-zero value, arrays replace wholesale when the override
// provides any elements, nested blocks merge recursively.
func mergeRaw(base Config, override raw) Config {
	if override.WorktreeBasePath != "" {
		base.WorktreeBasePath = override.WorktreeBasePath
	}
	if len(override.MainBranches) > 0 {
		base.MainBranches = override.MainBranches
	}
	if override.CleanBranch != "" {
		base.CleanBranch = CleanBranchMode(override.CleanBranch)
	}

	if override.CopyIgnoredFiles.Enabled != nil {
		base.CopyIgnoredEnabled = *override.CopyIgnoredFiles.Enabled
	}
	if len(override.CopyIgnoredFiles.Patterns) > 0 {
		base.CopyPatterns = override.CopyIgnoredFiles.Patterns
	}
	if len(override.CopyIgnoredFiles.ExcludePatterns) > 0 {
		base.CopyExcludePatterns = override.CopyIgnoredFiles.ExcludePatterns
	}

	if override.VirtualEnvHandling.IsolateVirtualEnvs != nil {
		base.IsolateVirtualEnvs = *override.VirtualEnvHandling.IsolateVirtualEnvs
	}
	if override.VirtualEnvHandling.Mode != "" {
		base.VirtualEnvMode = override.VirtualEnvHandling.Mode
	}
	if len(override.VirtualEnvHandling.CustomPatterns) > 0 {
		base.VirtualEnvPatterns = override.VirtualEnvHandling.CustomPatterns
	}
	if override.VirtualEnvHandling.MaxSizeMB != nil {
		base.VirtualEnvMaxSizeMB = *override.VirtualEnvHandling.MaxSizeMB
	}
	if override.VirtualEnvHandling.MaxDepth != nil {
		base.VirtualEnvMaxDepth = *override.VirtualEnvHandling.MaxDepth
	}

	if override.Hooks.PostCreate.Enabled != nil {
		base.PostCreateEnabled = *override.Hooks.PostCreate.Enabled
	}
	if len(override.Hooks.PostCreate.Commands) > 0 {
		base.PostCreateCommands = override.Hooks.PostCreate.Commands
	}

	return base
}
