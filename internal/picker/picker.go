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

// Package picker implements the interactive fuzzy-filtered list used by the
// go, remove, and add commands to resolve a worktree or branch from a
// partial query.
package picker

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

const tickInterval = 100 * time.Millisecond

const (
	minListHeight    = 4
	maxPreviewHeight = 15
	maxSelectedRows  = 5
)

// Item is one row offered by the picker.
type Item struct {
	Label    string
	Preview  string
	Disabled bool
}

var (
	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7eb8da"))

	matchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#d4a054"))

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6e7681"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e"))

	selectedMarkStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7ec699"))

	previewBorderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#3d4450"))
)

type itemSource []Item

func (s itemSource) String(i int) string { return s[i].Label }
func (s itemSource) Len() int            { return len(s) }

// Model is the bubbletea model driving one picker invocation.
type Model struct {
	items    []Item
	multi    bool
	query    string
	cursor   int
	scroll   int
	filtered []int           // indexes into items, ordered by descending score
	matches  map[int][]int   // item index -> matched rune positions
	selected map[int]bool    // item index -> selected (multi-select only)
	height   int             // terminal rows available to the picker
	width    int

	loading      bool
	pendingFetch func() tea.Msg

	done      bool
	cancelled bool
}

// fetchResultMsg carries the outcome of a deferred async fetch back onto
// the next tick, per the loading-state staging rule.
type fetchResultMsg struct{ items []Item }

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// New builds a picker model. pendingFetch, when non-nil, is run after the
// first "Loading…" frame is drawn rather than before the loop starts, so the
// loading frame is visible before any blocking subprocess work happens.
func New(items []Item, multi bool, pendingFetch func() tea.Msg) Model {
	m := Model{
		items:        items,
		multi:        multi,
		selected:     map[int]bool{},
		height:       20,
		loading:      pendingFetch != nil,
		pendingFetch: pendingFetch,
	}
	m.refilter()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.loading {
		return tickCmd()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.loading && m.pendingFetch != nil {
			fetch := m.pendingFetch
			m.pendingFetch = nil
			return m, func() tea.Msg { return fetch() }
		}
		return m, nil

	case fetchResultMsg:
		m.items = msg.items
		m.loading = false
		m.refilter()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.cancelled = true
		m.done = true
		return m, tea.Quit

	case "enter":
		m.done = true
		return m, tea.Quit

	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		m.adjustScroll()
		return m, nil

	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		m.adjustScroll()
		return m, nil

	case " ":
		if m.multi {
			m.toggleCurrent()
		}
		return m, nil

	case "ctrl+a":
		if m.multi {
			m.toggleSelectAll()
		}
		return m, nil

	case "backspace":
		if len(m.query) > 0 {
			m.query = m.query[:len(m.query)-1]
			m.refilter()
		}
		return m, nil

	default:
		if msg.Type == tea.KeyRunes {
			m.query += string(msg.Runes)
			m.refilter()
		}
		return m, nil
	}
}

func (m *Model) toggleCurrent() {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return
	}
	idx := m.filtered[m.cursor]
	if m.items[idx].Disabled {
		return
	}
	m.selected[idx] = !m.selected[idx]
}

func (m *Model) toggleSelectAll() {
	selectable := 0
	for _, idx := range m.filtered {
		if !m.items[idx].Disabled {
			selectable++
		}
	}

	allSelected := true
	for _, idx := range m.filtered {
		if m.items[idx].Disabled {
			continue
		}
		if !m.selected[idx] {
			allSelected = false
			break
		}
	}

	for _, idx := range m.filtered {
		if m.items[idx].Disabled {
			continue
		}
		m.selected[idx] = !allSelected
	}
}

// refilter recomputes the filtered index list and match-position map from
// the current query. An empty query matches every item in input order.
func (m *Model) refilter() {
	if m.query == "" {
		m.filtered = make([]int, len(m.items))
		for i := range m.items {
			m.filtered[i] = i
		}
		m.matches = nil
	} else {
		results := fuzzy.Find(m.query, itemSource(m.items))
		m.filtered = make([]int, len(results))
		m.matches = make(map[int][]int, len(results))
		for i, r := range results {
			m.filtered[i] = r.Index
			m.matches[r.Index] = r.MatchedIndexes
		}
	}

	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.adjustScroll()
}

// listGeometry returns (listHeight, showTop, showBottom, previewHeight) for
// the current terminal height, selection mode, and filtered count.
func (m Model) listGeometry() (listHeight int, showTop, showBottom bool, previewHeight int) {
	reserved := 2 // query line + help line
	if m.multi {
		reserved += maxSelectedRows
	}

	available := m.height - reserved
	if available < minListHeight {
		available = minListHeight
	}

	previewHeight = maxPreviewHeight
	if available-previewHeight < minListHeight {
		previewHeight = available - minListHeight
		if previewHeight < 0 {
			previewHeight = 0
		}
	}

	listHeight = available - previewHeight
	if listHeight < minListHeight {
		listHeight = minListHeight
	}

	showTop = m.scroll > 0
	showBottom = m.scroll+listHeight < len(m.filtered)

	indicatorRows := 0
	if showTop {
		indicatorRows++
	}
	if showBottom {
		indicatorRows++
	}
	if listHeight-indicatorRows < 3 {
		showBottom = false
		if listHeight-boolToInt(showTop) < 3 {
			showTop = false
		}
	}

	return listHeight, showTop, showBottom, previewHeight
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (m *Model) adjustScroll() {
	listHeight, _, _, _ := m.listGeometry()
	maxScroll := len(m.filtered) - listHeight
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+listHeight {
		m.scroll = m.cursor - listHeight + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

func (m Model) View() string {
	if m.loading {
		return "Loading…\n"
	}

	var b strings.Builder
	b.WriteString("> " + m.query + "\n")

	listHeight, showTop, showBottom, previewHeight := m.listGeometry()

	start := m.scroll
	end := start + listHeight
	if showTop {
		start++
	}
	if showBottom {
		end--
	}
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	if start > end {
		start = end
	}

	if showTop {
		b.WriteString(dimStyle.Render(upMoreLabel(start)) + "\n")
	}

	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(i) + "\n")
	}

	if showBottom {
		b.WriteString(dimStyle.Render(downMoreLabel(len(m.filtered) - end)) + "\n")
	}

	if m.multi {
		b.WriteString(m.renderSelected())
	}

	if previewHeight > 0 && m.cursor < len(m.filtered) {
		idx := m.filtered[m.cursor]
		b.WriteString(previewBorderStyle.Render(strings.Repeat("─", 20)) + "\n")
		b.WriteString(m.items[idx].Preview + "\n")
	}

	return b.String()
}

func upMoreLabel(n int) string   { return formatMore("↑", n) }
func downMoreLabel(n int) string { return formatMore("↓", n) }

func formatMore(arrow string, n int) string {
	if n <= 0 {
		return arrow + " more"
	}
	return arrow + " " + itoa(n) + " more"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func (m Model) renderRow(i int) string {
	idx := m.filtered[i]
	item := m.items[idx]

	cursorMark := "  "
	if i == m.cursor {
		cursorMark = "> "
	}

	selectMark := ""
	if m.multi {
		if m.selected[idx] {
			selectMark = selectedMarkStyle.Render("[x] ")
		} else {
			selectMark = "[ ] "
		}
	}

	label := m.renderLabel(idx, item.Label)
	if item.Disabled {
		label = disabledStyle.Render(item.Label)
	}

	row := cursorMark + selectMark + label
	if i == m.cursor {
		return cursorStyle.Render(row)
	}
	return row
}

func (m Model) renderLabel(idx int, label string) string {
	positions := m.matches[idx]
	if len(positions) == 0 {
		return label
	}

	posSet := make(map[int]bool, len(positions))
	for _, p := range positions {
		posSet[p] = true
	}

	var b strings.Builder
	for i, r := range []rune(label) {
		if posSet[i] {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteString(string(r))
		}
	}
	return b.String()
}

func (m Model) renderSelected() string {
	var b strings.Builder
	count := 0
	for idx, sel := range m.selected {
		if !sel {
			continue
		}
		if count >= maxSelectedRows {
			break
		}
		b.WriteString(dimStyle.Render("  selected: " + m.items[idx].Label + "\n"))
		count++
	}
	return b.String()
}

// Result is the outcome of running a picker to completion.
type Result struct {
	Selected  []Item
	Cancelled bool
}

// Cancelled reports whether the picker quit via Esc/Ctrl-C.
func (m Model) Cancelled() bool { return m.cancelled }

// SelectedItems returns every selected item for a multi-select picker (or
// the item under the cursor when none is selected), or the single item under
// the cursor for a single-select picker. Returns nil when cancelled.
func (m Model) SelectedItems() []Item {
	if m.cancelled {
		return nil
	}

	if !m.multi {
		if m.cursor < 0 || m.cursor >= len(m.filtered) {
			return nil
		}
		return []Item{m.items[m.filtered[m.cursor]]}
	}

	var out []Item
	for _, idx := range m.filtered {
		if m.selected[idx] {
			out = append(out, m.items[idx])
		}
	}
	if len(out) == 0 && m.cursor < len(m.filtered) {
		out = append(out, m.items[m.filtered[m.cursor]])
	}
	return out
}

// Run drives the model through a terminal program to completion and returns
// the selection result. RunAddFlow sets up its own program for AddModel.
func Run(m Model) (Result, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Result{}, err
	}

	fm := final.(Model)
	return Result{Selected: fm.SelectedItems(), Cancelled: fm.Cancelled()}, nil
}
