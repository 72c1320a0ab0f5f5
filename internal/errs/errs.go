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

// Package errs defines the error-kind taxonomy used across gwm and attaches
// user-facing suggestions to recoverable failures.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind string

const (
	KindNotGitRepository    Kind = "not_git_repository"
	KindGitCommand          Kind = "git_command"
	KindBranchExists        Kind = "branch_exists"
	KindBranchNotFound      Kind = "branch_not_found"
	KindNoRemote            Kind = "no_remote"
	KindConfig              Kind = "config"
	KindIO                  Kind = "io"
	KindPath                Kind = "path"
	KindTrust               Kind = "trust"
	KindHook                Kind = "hook"
	KindCancelled           Kind = "cancelled"
	KindInvalidArgument     Kind = "invalid_argument"
	KindUncommittedChanges  Kind = "uncommitted_changes"
	KindUnpushedCommits     Kind = "unpushed_commits"
)

// Sentinel values for errors.Is matching against a Kind, independent of message text.
var (
	ErrNotGitRepository   = errors.New("not a git repository")
	ErrNoRemote           = errors.New("no remote named origin")
	ErrCancelled          = errors.New("cancelled")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUncommittedChanges = errors.New("worktree has uncommitted changes")
	ErrUnpushedCommits    = errors.New("worktree has unpushed commits")
)

// Suggestion is a single piece of remediation guidance. Command is optional.
type Suggestion struct {
	Description string
	Command     string
}

// Error is the structured, user-facing error type surfaced at the top level.
type Error struct {
	Kind        Kind
	Message     string
	Details     map[string]string
	Suggestions []Suggestion
	cause       error
}

// New creates an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the sentinel for e.Kind, so callers can write
// errors.Is(err, errs.ErrNoRemote) regardless of whether the value is a raw
// sentinel or a wrapped *Error.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && errors.Is(sentinel, target)
}

var kindSentinels = map[Kind]error{
	KindNotGitRepository:   ErrNotGitRepository,
	KindNoRemote:           ErrNoRemote,
	KindCancelled:          ErrCancelled,
	KindInvalidArgument:    ErrInvalidArgument,
	KindUncommittedChanges: ErrUncommittedChanges,
	KindUnpushedCommits:    ErrUnpushedCommits,
}

// WithDetail attaches a key/value detail and returns e for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// WithSuggestions attaches suggestions and returns e for chaining.
func (e *Error) WithSuggestions(suggestions ...Suggestion) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// BranchExists builds the canonical suggestion set for an existing-branch conflict.
func BranchExists(branch string) *Error {
	return New(KindBranchExists, fmt.Sprintf("branch %q already exists", branch)).
		WithDetail("branch", branch).
		WithSuggestions(
			Suggestion{Description: "Use existing branch", Command: "gwm go " + branch},
			Suggestion{Description: "Create with different name", Command: "gwm add " + branch + "-2"},
			Suggestion{Description: "Delete existing and recreate", Command: "git branch -D " + branch + " && gwm add " + branch},
		)
}

// BranchNotFound reports that branch could not be resolved to a worktree or ref.
func BranchNotFound(branch string) *Error {
	return New(KindBranchNotFound, fmt.Sprintf("branch %q not found", branch)).
		WithDetail("branch", branch).
		WithSuggestions(
			Suggestion{Description: "List worktrees", Command: "gwm list"},
			Suggestion{Description: "Create it", Command: "gwm add " + branch},
		)
}
