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

// Package copy carries git-ignored files that are essential to a project
// (.env and similar) from a source worktree into a freshly created one.
package copy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"

	"github.com/gwmhq/gwm/internal/gitcmd"
)

// Result aggregates the four outcome sets the ignored-file copy step
// reports: copied, skipped by an exclude pattern, already present at the
// destination, and failed (with a reason per entry).
type Result struct {
	Copied    []string
	Excluded  []string
	Existing  []string
	Failed    map[string]string
}

func newResult() Result {
	return Result{Failed: map[string]string{}}
}

// VirtualEnvFilter reports whether rel (a source-relative, slash-separated
// path) should be skipped entirely because it looks like a virtual
// environment or dependency cache directory gwm should not copy.
type VirtualEnvFilter func(rel string) bool

// NoVirtualEnvFilter never excludes anything.
func NoVirtualEnvFilter(string) bool { return false }

// CopyIgnoredFiles implements the two source-selection modes from the
// ignored-file copy spec: when patterns is non-empty, each glob is expanded
// against srcRoot; when empty, every file in srcRoot is enumerated and
// piped through `git check-ignore --stdin -z` to find the git-ignored ones.
func CopyIgnoredFiles(ctx context.Context, g gitcmd.Git, srcRoot, dstRoot string, patterns, excludePatterns []string, venvFilter VirtualEnvFilter) (Result, error) {
	if venvFilter == nil {
		venvFilter = NoVirtualEnvFilter
	}

	var candidates []string
	var err error
	if len(patterns) > 0 {
		candidates, err = expandPatterns(srcRoot, patterns)
	} else {
		candidates, err = enumerateGitIgnored(ctx, g, srcRoot)
	}
	if err != nil {
		return Result{}, err
	}

	excludes := normalizePatterns(excludePatterns)
	result := newResult()

	for _, rel := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if venvFilter(rel) {
			continue
		}
		if excludedBy(rel, excludes) {
			result.Excluded = append(result.Excluded, rel)
			continue
		}

		srcPath := filepath.Join(srcRoot, filepath.FromSlash(rel))
		dstPath := filepath.Join(dstRoot, filepath.FromSlash(rel))

		if _, statErr := os.Lstat(dstPath); statErr == nil {
			result.Existing = append(result.Existing, rel)
			continue
		}

		if err := copyPath(srcPath, dstPath); err != nil {
			result.Failed[rel] = err.Error()
			continue
		}
		result.Copied = append(result.Copied, rel)
	}

	return result, nil
}

// expandPatterns expands each glob in patterns against srcRoot and returns
// the matched relative (slash-separated) paths, deduplicated.
func expandPatterns(srcRoot string, patterns []string) ([]string, error) {
	srcFS := os.DirFS(srcRoot)

	var out []string
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		pattern := filepath.ToSlash(p)

		matches, err := doublestar.Glob(srcFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			out = appendUnique(out, filepath.ToSlash(strings.TrimPrefix(m, "./")))
		}
	}
	return out, nil
}

// enumerateGitIgnored walks srcRoot (skipping .git and symlinks), then asks
// git which of those relative paths are ignored. Exit code 1 (nothing
// ignored) and 128 (not a git repository) are treated as "nothing ignored",
// not as an error.
func enumerateGitIgnored(ctx context.Context, g gitcmd.Git, srcRoot string) ([]string, error) {
	var all []string
	err := filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == srcRoot {
			return nil
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ".git" || strings.HasPrefix(rel, ".git/") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		all = append(all, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", srcRoot, err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	stdin := strings.Join(all, "\x00") + "\x00"
	res, err := checkIgnore(ctx, g, srcRoot, stdin)
	if err != nil {
		return nil, err
	}

	var ignored []string
	for _, rel := range strings.Split(res, "\x00") {
		if rel != "" {
			ignored = append(ignored, rel)
		}
	}
	return ignored, nil
}

func checkIgnore(ctx context.Context, g gitcmd.Git, dir, stdin string) (string, error) {
	out, err := g.RunStdin(ctx, dir, stdin, "check-ignore", "--stdin", "-z")
	if err == nil {
		return out, nil
	}

	var ee *gitcmd.ExitError
	if errors.As(err, &ee) && (ee.ExitCode == 1 || ee.ExitCode == 128) {
		return "", nil
	}
	return "", err
}

// copyPath copies src to dst, recursing into directories and reproducing
// symlinks (never following them) rather than copying their targets.
func copyPath(src, dst string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		return copySymlink(src, dst)
	case fi.IsDir():
		return copyDir(src, dst)
	default:
		return copyFile(src, dst, fi.Mode())
	}
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := copyPath(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Symlink(target, dst)
}

func copyFile(src, dst string, mode os.FileMode) (err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm()) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = dstFile.Close() }()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

func normalizePatterns(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, filepath.ToSlash(p))
	}
	return out
}

func excludedBy(path string, excludePatterns []string) bool {
	for _, p := range excludePatterns {
		ok, err := doublestar.Match(p, path)
		if err == nil && ok {
			return true
		}
	}
	return false
}

func appendUnique(dst []string, value string) []string {
	if slices.Contains(dst, value) {
		return dst
	}
	return append(dst, value)
}
