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

package relatime

import (
	"testing"
	"time"
)

func TestFormatBuckets(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		d    time.Duration
		want string
	}{
		"just now":           {d: 0, want: "just now"},
		"59s still just now": {d: 59 * time.Second, want: "just now"},
		"60s rolls to minute boundary": {d: 60 * time.Second, want: "1m ago"},
		"30m":                {d: 30 * time.Minute, want: "30m ago"},
		"3599s still minute": {d: 3599 * time.Second, want: "59m ago"},
		"3600s rolls to hour": {d: 3600 * time.Second, want: "1h ago"},
		"12h":                {d: 12 * time.Hour, want: "12h ago"},
		"86400s rolls to day": {d: 86400 * time.Second, want: "1d ago"},
		"6d still day":       {d: 6 * day, want: "6d ago"},
		"7d rolls to week":   {d: 7 * day, want: "1w ago"},
		"29d still week":     {d: 29 * day, want: "4w ago"},
		"30d rolls to month": {d: 30 * day, want: "1mo ago"},
		"364d still month":   {d: 364 * day, want: "12mo ago"},
		"365d rolls to year": {d: 365 * day, want: "1y ago"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := Format(tc.d); got != tc.want {
				t.Fatalf("Format(%v) = %q, want %q", tc.d, got, tc.want)
			}
		})
	}
}
