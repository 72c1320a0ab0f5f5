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

// Package naming validates and sanitizes branch names for use as worktree
// directory components.
package naming

import (
	"strings"

	"github.com/gwmhq/gwm/internal/errs"
)

// maxBranchNameLength is the length ceiling enforced by ValidateBranchName.
const maxBranchNameLength = 50

// forbiddenChars mirrors the subset of Git ref-name rules the add pipeline
// enforces before any subprocess runs: no whitespace and none of `~^:?*[]\@`.
const forbiddenChars = `~^:?*[]\@`

// SanitizeBranchName replaces '/' with '-' so a branch name can be used as a
// single path component. It is a homomorphism over '/': sanitizing is
// length-preserving for any input containing no '/'.
func SanitizeBranchName(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}

// ValidateBranchName checks branch against the Git ref-name rules the add
// pipeline requires before any subprocess runs. It returns a *errs.Error of
// kind KindInvalidArgument describing the first violation found, or nil.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return errs.New(errs.KindInvalidArgument, "branch name must not be empty")
	}
	if len(branch) > maxBranchNameLength {
		return errs.New(errs.KindInvalidArgument, "branch name must be 50 characters or fewer").
			WithDetail("branch", branch)
	}
	if strings.ContainsAny(branch, " \t\n") {
		return errs.New(errs.KindInvalidArgument, "branch name must not contain whitespace").
			WithDetail("branch", branch)
	}
	if strings.ContainsAny(branch, forbiddenChars) {
		return errs.New(errs.KindInvalidArgument, "branch name contains a forbidden character (~^:?*[]\\@)").
			WithDetail("branch", branch)
	}
	if strings.HasPrefix(branch, ".") || strings.HasSuffix(branch, ".") {
		return errs.New(errs.KindInvalidArgument, "branch name must not start or end with '.'").
			WithDetail("branch", branch)
	}
	if strings.Contains(branch, "..") {
		return errs.New(errs.KindInvalidArgument, "branch name must not contain '..'").
			WithDetail("branch", branch)
	}
	if strings.HasPrefix(branch, "/") || strings.HasSuffix(branch, "/") {
		return errs.New(errs.KindInvalidArgument, "branch name must not start or end with '/'").
			WithDetail("branch", branch)
	}
	if strings.Contains(branch, "//") {
		return errs.New(errs.KindInvalidArgument, "branch name must not contain '//'").
			WithDetail("branch", branch)
	}
	if strings.HasSuffix(branch, ".lock") {
		return errs.New(errs.KindInvalidArgument, "branch name must not end with '.lock'").
			WithDetail("branch", branch)
	}
	return nil
}
