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

// Package trust gates execution of project-defined hooks behind a
// content-hashed cache of previously approved project configurations.
package trust

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"
)

// maxConfigSize bounds the file the engine will hash; larger files are
// rejected rather than streamed indefinitely.
const maxConfigSize = 10 * 1024 * 1024

const hashChunkSize = 8 * 1024

// Reason distinguishes why confirmation is required.
type Reason string

const (
	ReasonFirstTime     Reason = "first_time"
	ReasonConfigChanged Reason = "config_changed"
)

// Outcome is the decision the engine returns.
type Outcome struct {
	Kind OutcomeKind

	Reason     Reason
	Commands   []string
	ConfigPath string
	ConfigHash string
}

// OutcomeKind enumerates the four decisions the engine can reach.
type OutcomeKind int

const (
	// NoHooks means the merged config defines no post-create commands at all.
	NoHooks OutcomeKind = iota
	// GlobalConfig means the project does not define its own hooks; only the
	// global config contributed commands, which always run without asking.
	GlobalConfig
	// Trusted means the project config's hash matches a previously trusted entry.
	Trusted
	// NeedsConfirmation means the caller must ask the operator (or, in a
	// non-interactive invocation, decline and report the commands).
	NeedsConfirmation
)

// Entry is one cache record, keyed by canonical repository root.
type Entry struct {
	ConfigPath      string   `json:"config_path"`
	ConfigHash      string   `json:"config_hash"`
	TrustedAt       string   `json:"trusted_at"`
	TrustedCommands []string `json:"trusted_commands"`
}

type document struct {
	Version int              `json:"version"`
	Repos   map[string]Entry `json:"repos"`
}

const currentVersion = 1

// Cache is the loaded, prunable trust cache.
type Cache struct {
	path string
	doc  document
}

// DefaultCachePath returns ~/.config/<tool>/trusted_repos.json.
func DefaultCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gwm", "trusted_repos.json"), nil
}

// Load reads the cache at path, pruning entries whose repository directory
// no longer exists. A missing or malformed file yields an empty cache; a
// warning is logged for malformed content rather than returning an error, so
// callers never have to special-case a corrupt cache file.
func Load(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{path: path, doc: document{Version: currentVersion, Repos: map[string]Entry{}}}

	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("trust cache unreadable, starting empty", "path", path, "error", err)
		}
		return c
	}

	var doc document
	if err := json.Unmarshal(jsonc.ToJSON(b), &doc); err != nil {
		logger.Warn("trust cache malformed, starting empty", "path", path, "error", err)
		return c
	}
	if doc.Repos == nil {
		doc.Repos = map[string]Entry{}
	}

	pruned := false
	for repoRoot := range doc.Repos {
		if _, err := os.Stat(repoRoot); err != nil {
			delete(doc.Repos, repoRoot)
			pruned = true
		}
	}

	c.doc = doc
	if pruned {
		if err := c.save(); err != nil {
			logger.Warn("failed to rewrite pruned trust cache", "path", path, "error", err)
		}
	}

	return c
}

// save writes the cache to disk, creating its directory and using mode 0600
// on POSIX systems.
func (c *Cache) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create trust cache dir: %w", err)
	}

	b, err := json.MarshalIndent(c.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trust cache: %w", err)
	}

	return os.WriteFile(c.path, b, 0o600)
}

// HashConfig streams the SHA-256 digest of the file at path in fixed-size
// chunks, never buffering the whole file, and rejects files over
// maxConfigSize.
func HashConfig(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", path, err)
	}
	if fi.Size() > maxConfigSize {
		return "", fmt.Errorf("config file %q exceeds %d bytes", path, maxConfigSize)
	}

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{f}, buf); err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Decide answers whether hooks may run without asking for repoRoot (already
// canonicalized by the caller). commands is the merged post-create command
// list; projectDefinesHooks reports whether the project's own config file
// contributed to it; configPath is that project config file's path.
func (c *Cache) Decide(repoRoot string, commands []string, projectDefinesHooks bool, configPath string) (Outcome, error) {
	if len(commands) == 0 {
		return Outcome{Kind: NoHooks}, nil
	}
	if !projectDefinesHooks {
		return Outcome{Kind: GlobalConfig, Commands: commands}, nil
	}

	hash, err := HashConfig(configPath)
	if err != nil {
		return Outcome{}, err
	}

	entry, ok := c.doc.Repos[repoRoot]
	if !ok {
		return Outcome{Kind: NeedsConfirmation, Reason: ReasonFirstTime, Commands: commands, ConfigPath: configPath, ConfigHash: hash}, nil
	}
	if entry.ConfigHash != hash {
		return Outcome{Kind: NeedsConfirmation, Reason: ReasonConfigChanged, Commands: commands, ConfigPath: configPath, ConfigHash: hash}, nil
	}

	return Outcome{Kind: Trusted, Commands: commands, ConfigPath: configPath, ConfigHash: hash}, nil
}

// Trust persists a Trust decision for repoRoot: the project's config path,
// hash, and the commands approved, keyed by canonical repo root.
func (c *Cache) Trust(repoRoot string, outcome Outcome, now time.Time) error {
	c.doc.Repos[repoRoot] = Entry{
		ConfigPath:      outcome.ConfigPath,
		ConfigHash:      outcome.ConfigHash,
		TrustedAt:       now.Format(time.RFC3339),
		TrustedCommands: outcome.Commands,
	}
	return c.save()
}
