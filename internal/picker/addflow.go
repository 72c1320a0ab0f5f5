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
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwmhq/gwm/internal/trust"
)

// AddStage is one state of the add-command flow.
type AddStage int

const (
	StageLoading AddStage = iota
	StageTextInput
	StageSelectList
	StageConfirm
	StageDone
)

// TrustChoice is the user's decision in the confirm dialog.
type TrustChoice int

const (
	ChoiceNone TrustChoice = iota
	ChoiceTrust
	ChoiceOnce
	ChoiceCancel
)

var confirmOptions = []struct {
	choice TrustChoice
	label  string
	key    string
}{
	{ChoiceTrust, "Trust", "t"},
	{ChoiceOnce, "Once", "o"},
	{ChoiceCancel, "Cancel", "c"},
}

// AddModel drives the add command's Loading -> TextInput|SelectList ->
// Confirm -> terminal state machine. Tab in TextInput toggles to
// SelectList once the remote-branch fetch completes, mirroring how the
// underlying picker's loading frame renders before any blocking fetch runs.
//
// The branch-selection half (TextInput/SelectList) and the trust-confirm
// half (Confirm) run as two independently constructed models in practice,
// since the add pipeline only knows whether a trust confirmation is needed
// after the branch has been resolved and the hook pipeline has consulted
// the trust cache: NewAddModel starts a branch-only flow that terminates at
// StageDone once a branch is chosen, and NewConfirmModel starts a flow
// already sitting at StageConfirm for the trust prompt.
type AddModel struct {
	stage AddStage

	remoteBranchesLoading bool
	fetchRemoteBranches   func() tea.Msg

	textInput string

	list Model // used for StageSelectList (remote branches)

	confirmOutcome trust.Outcome
	confirmCursor  int
	choice         TrustChoice

	branch     string
	branchOnly bool
}

type remoteBranchesMsg []Item

// RemoteBranchesMsg wraps a fetched remote-branch list as the tea.Msg a
// NewAddModel caller's fetchRemoteBranches callback must return.
func RemoteBranchesMsg(items []Item) tea.Msg { return remoteBranchesMsg(items) }

// NewAddModel starts a branch-only flow (TextInput, or SelectList once Tab
// triggers fetchRemoteBranches) that reaches StageDone as soon as a branch
// is chosen, without passing through the trust-confirm stage.
func NewAddModel(fetchRemoteBranches func() tea.Msg) AddModel {
	return AddModel{fetchRemoteBranches: fetchRemoteBranches, stage: StageTextInput, branchOnly: true}
}

// NewConfirmModel starts directly in the Confirm stage, for use as the
// trust-confirmation prompt once a branch has already been resolved and the
// trust cache has reported NeedsConfirmation. The cursor starts on Cancel,
// not Trust, so a reflexive Enter at the prompt can never silently
// whitelist a project's hook commands.
func NewConfirmModel(outcome trust.Outcome) AddModel {
	cursor := 0
	for i, opt := range confirmOptions {
		if opt.choice == ChoiceCancel {
			cursor = i
			break
		}
	}
	return AddModel{stage: StageConfirm, confirmOutcome: outcome, confirmCursor: cursor}
}

func (m AddModel) Init() tea.Cmd {
	return nil
}

func (m AddModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case remoteBranchesMsg:
		m.remoteBranchesLoading = false
		m.list = New([]Item(msg), false, nil)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.stage == StageSelectList {
		updated, cmd := m.list.Update(msg)
		m.list = updated.(Model)
		return m, cmd
	}

	return m, nil
}

func (m AddModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case StageTextInput:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.choice = ChoiceCancel
			m.stage = StageDone
			return m, tea.Quit
		case "tab":
			if m.fetchRemoteBranches != nil {
				m.stage = StageSelectList
				m.remoteBranchesLoading = true
				fetch := m.fetchRemoteBranches
				return m, func() tea.Msg { return fetch() }
			}
			return m, nil
		case "enter":
			m.branch = m.textInput
			if m.branchOnly {
				m.stage = StageDone
				return m, tea.Quit
			}
			m.stage = StageConfirm
			return m, nil
		case "backspace":
			if len(m.textInput) > 0 {
				m.textInput = m.textInput[:len(m.textInput)-1]
			}
			return m, nil
		default:
			if msg.Type == tea.KeyRunes {
				m.textInput += string(msg.Runes)
			}
			return m, nil
		}

	case StageSelectList:
		if msg.String() == "enter" {
			sel := m.list.SelectedItems()
			if len(sel) > 0 {
				m.branch = sel[0].Label
			}
			if m.branchOnly {
				m.stage = StageDone
				return m, tea.Quit
			}
			m.stage = StageConfirm
			return m, nil
		}
		updated, cmd := m.list.Update(msg)
		m.list = updated.(Model)
		if m.list.Cancelled() {
			m.choice = ChoiceCancel
			m.stage = StageDone
			return m, tea.Quit
		}
		return m, cmd

	case StageConfirm:
		switch msg.String() {
		case "left", "h":
			if m.confirmCursor > 0 {
				m.confirmCursor--
			}
			return m, nil
		case "right", "l":
			if m.confirmCursor < len(confirmOptions)-1 {
				m.confirmCursor++
			}
			return m, nil
		case "t", "o", "c":
			for i, opt := range confirmOptions {
				if opt.key == msg.String() {
					m.confirmCursor = i
				}
			}
			m.choice = confirmOptions[m.confirmCursor].choice
			m.stage = StageDone
			return m, tea.Quit
		case "enter":
			m.choice = confirmOptions[m.confirmCursor].choice
			m.stage = StageDone
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.choice = ChoiceCancel
			m.stage = StageDone
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m AddModel) View() string {
	switch m.stage {
	case StageTextInput:
		return "New branch name: " + m.textInput + "\n" +
			dimStyle.Render("(tab to pick a remote branch instead, enter to confirm)") + "\n"

	case StageSelectList:
		if m.remoteBranchesLoading {
			return "Loading remote branches…\n"
		}
		return m.list.View()

	case StageConfirm:
		var b strings.Builder
		b.WriteString("This project defines setup hooks that haven't been confirmed yet:\n")
		for _, cmd := range m.confirmOutcome.Commands {
			b.WriteString("  " + cmd + "\n")
		}
		b.WriteString("\n")
		for i, opt := range confirmOptions {
			label := opt.label
			if i == m.confirmCursor {
				label = cursorStyle.Render("[" + label + "]")
			} else {
				label = lipgloss.NewStyle().Render(" " + label + " ")
			}
			b.WriteString(label + "  ")
		}
		b.WriteString("\n")
		return b.String()

	default:
		return ""
	}
}

// Branch returns the resolved branch name once the flow reaches StageDone
// via TextInput or SelectList.
func (m AddModel) Branch() string { return m.branch }

// Choice returns the confirm-dialog decision once the flow reaches
// StageDone via StageConfirm.
func (m AddModel) Choice() TrustChoice { return m.choice }

// RunAddFlow drives an AddModel through a terminal program to completion.
func RunAddFlow(m AddModel) (AddModel, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return AddModel{}, err
	}
	return final.(AddModel), nil
}
