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

// Package relatime formats durations as short, human-facing relative-time
// labels for worktree last-activity display.
package relatime

import (
	"fmt"
	"time"
)

const (
	minute = time.Minute
	hour   = time.Hour
	day    = 24 * hour
	week   = 7 * day
	month  = 30 * day
	year   = 365 * day
)

// Format renders d (how long ago an event occurred) as a short relative label.
//
// Bucket boundaries are inclusive of the next bucket: exactly 60s, 1h, 1d,
// 7d, 30d, and 365d each produce the next bucket's label, not the current
// one.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	switch {
	case d < minute:
		return "just now"
	case d < hour:
		return fmt.Sprintf("%dm ago", int(d/minute))
	case d < day:
		return fmt.Sprintf("%dh ago", int(d/hour))
	case d < week:
		return fmt.Sprintf("%dd ago", int(d/day))
	case d < month:
		return fmt.Sprintf("%dw ago", int(d/week))
	case d < year:
		return fmt.Sprintf("%dmo ago", int(d/month))
	default:
		return fmt.Sprintf("%dy ago", int(d/year))
	}
}

// Since formats the duration elapsed since t.
func Since(t time.Time) string {
	return Format(time.Since(t))
}
