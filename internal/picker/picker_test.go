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

package picker

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func sampleItems() []Item {
	return []Item{
		{Label: "feature-auth"},
		{Label: "feature-billing"},
		{Label: "bugfix-login"},
		{Label: "main", Disabled: true},
	}
}

func TestRefilterEmptyQueryKeepsInputOrder(t *testing.T) {
	t.Parallel()

	m := New(sampleItems(), false, nil)
	if len(m.filtered) != 4 {
		t.Fatalf("len(filtered) = %d, want 4", len(m.filtered))
	}
	if m.filtered[0] != 0 || m.filtered[3] != 3 {
		t.Fatalf("filtered = %v, want input order", m.filtered)
	}
}

func TestRefilterNarrowsToMatches(t *testing.T) {
	t.Parallel()

	m := New(sampleItems(), false, nil)
	m.query = "feat"
	m.refilter()

	if len(m.filtered) != 2 {
		t.Fatalf("len(filtered) = %d, want 2 (feature-auth, feature-billing)", len(m.filtered))
	}
}

func TestToggleSelectAllSkipsDisabled(t *testing.T) {
	t.Parallel()

	m := New(sampleItems(), true, nil)
	m.toggleSelectAll()

	for idx, item := range m.items {
		if item.Disabled {
			if m.selected[idx] {
				t.Fatalf("expected disabled item %q to not be selectable", item.Label)
			}
			continue
		}
		if !m.selected[idx] {
			t.Fatalf("expected item %q to be selected after select-all", item.Label)
		}
	}

	m.toggleSelectAll()
	for idx, item := range m.items {
		if !item.Disabled && m.selected[idx] {
			t.Fatalf("expected item %q to be deselected after second select-all", item.Label)
		}
	}
}

func TestToggleCurrentSkipsDisabledItem(t *testing.T) {
	t.Parallel()

	m := New(sampleItems(), true, nil)
	m.cursor = 3 // the disabled "main" entry
	m.toggleCurrent()

	if m.selected[3] {
		t.Fatalf("expected disabled item to remain unselected")
	}
}

func TestCursorStopsAtEdges(t *testing.T) {
	t.Parallel()

	m := New(sampleItems(), false, nil)
	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0 (clamped at top edge)", m.cursor)
	}

	for i := 0; i < 10; i++ {
		updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyDown})
		m = updated.(Model)
	}
	if m.cursor != len(m.filtered)-1 {
		t.Fatalf("cursor = %d, want %d (clamped at bottom edge)", m.cursor, len(m.filtered)-1)
	}
}

func TestEscCancelsSingleSelect(t *testing.T) {
	t.Parallel()

	m := New(sampleItems(), false, nil)
	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	if !m.Cancelled() {
		t.Fatalf("expected Esc to cancel the picker")
	}
	if m.SelectedItems() != nil {
		t.Fatalf("expected no selection after cancel")
	}
}

func TestListGeometryDropsIndicatorsWhenTooSmall(t *testing.T) {
	t.Parallel()

	items := make([]Item, 50)
	for i := range items {
		items[i] = Item{Label: "item"}
	}

	m := New(items, false, nil)
	m.height = 6 // small terminal: query line + help + tiny list
	m.scroll = 10

	listHeight, showTop, showBottom, _ := m.listGeometry()
	if listHeight < minListHeight {
		t.Fatalf("listHeight = %d, want >= %d", listHeight, minListHeight)
	}
	if showTop && showBottom {
		t.Fatalf("showTop and showBottom both true with listHeight %d; want at least one indicator dropped", listHeight)
	}
}
