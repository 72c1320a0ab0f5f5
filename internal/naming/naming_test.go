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

package naming

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSanitizeBranchName(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  string
	}{
		"success: preserves normal branch":   {input: "feature", want: "feature"},
		"success: replaces single slash":     {input: "feature/auth", want: "feature-auth"},
		"success: replaces multiple slashes": {input: "a/b/c", want: "a-b-c"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := SanitizeBranchName(tc.input)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("sanitize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSanitizeBranchNameLengthPreservingWithoutSlash(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"feature", "fix-123", "x"} {
		if got := SanitizeBranchName(in); len(got) != len(in) {
			t.Fatalf("SanitizeBranchName(%q) = %q, length changed", in, got)
		}
	}
}

func TestValidateBranchName(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input   string
		wantErr bool
	}{
		"success: simple name":        {input: "feature"},
		"success: with slash":         {input: "feature/auth"},
		"failure: empty":              {input: "", wantErr: true},
		"failure: too long":           {input: strings.Repeat("a", 51), wantErr: true},
		"failure: contains space":     {input: "feature auth", wantErr: true},
		"failure: forbidden char":     {input: "feature~1", wantErr: true},
		"failure: leading dot":        {input: ".feature", wantErr: true},
		"failure: trailing dot":       {input: "feature.", wantErr: true},
		"failure: double dot":         {input: "feature..auth", wantErr: true},
		"failure: leading slash":      {input: "/feature", wantErr: true},
		"failure: trailing slash":     {input: "feature/", wantErr: true},
		"failure: double slash":       {input: "feature//auth", wantErr: true},
		"failure: dot lock suffix":    {input: "feature.lock", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := ValidateBranchName(tc.input)
			if tc.wantErr && err == nil {
				t.Fatalf("ValidateBranchName(%q) = nil, want error", tc.input)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("ValidateBranchName(%q) = %v, want nil", tc.input, err)
			}
		})
	}
}

func TestValidateThenSanitizeNeverContainsForbiddenChars(t *testing.T) {
	t.Parallel()

	valid := []string{"feature", "feature/auth", "fix-123", "a/b/c"}
	for _, b := range valid {
		if err := ValidateBranchName(b); err != nil {
			t.Fatalf("unexpected invalid fixture %q: %v", b, err)
		}
		if strings.ContainsAny(SanitizeBranchName(b), forbiddenChars) {
			t.Fatalf("sanitize(%q) introduced a forbidden character", b)
		}
	}
}
