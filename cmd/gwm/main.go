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

// Command gwm is the git worktree manager CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gwmhq/gwm/internal/config"
	"github.com/gwmhq/gwm/internal/errs"
	"github.com/gwmhq/gwm/internal/gitops"
	"github.com/gwmhq/gwm/internal/gwm"
	"github.com/gwmhq/gwm/internal/hooks"
	"github.com/gwmhq/gwm/internal/picker"
	"github.com/gwmhq/gwm/internal/relatime"
	"github.com/gwmhq/gwm/internal/remove"
	"github.com/gwmhq/gwm/internal/shellbridge"
	"github.com/gwmhq/gwm/internal/trust"
	"github.com/gwmhq/gwm/internal/version"
	"github.com/gwmhq/gwm/internal/worktree"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	root := newRootCommand()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gwm: %v\n", err)
		return exitFailure
	}
	return exitSuccess
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gwm",
		Short:         "Manage git worktrees with trusted setup hooks",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newListCommand(),
		newAddCommand(),
		newRemoveCommand(),
		newGoCommand(),
		newCleanCommand(),
		newPullMainCommand(),
	)

	return root
}

func newManager(ctx context.Context) (*gwm.Manager, error) {
	return gwm.NewManager(ctx, gwm.ManagerOptions{})
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the enriched worktree table",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(cmd.Context())
			if err != nil {
				return err
			}

			entries, err := m.ListEnriched(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-10s %-30s %-10s %s\n", "ROLE", "BRANCH", "ACTIVITY", "PATH")
			for _, e := range entries {
				role := ""
				if e.IsMain {
					role = "main"
				} else if e.IsActive {
					role = "active"
				}
				activity := "-"
				if e.Commit != nil {
					if t, err := time.Parse(time.RFC3339, e.Commit.DateISO); err == nil {
						activity = relatime.Since(t)
					}
				}
				fmt.Fprintf(w, "%-10s %-30s %-10s %s\n", role, e.DisplayBranch(), activity, e.Path)
			}
			return nil
		},
	}
}

// pickWorktree resolves a single worktree: an exact query match bypasses the
// picker entirely; an empty or non-matching query falls through to the
// single-select picker over every enriched worktree (§4.9).
func pickWorktree(ctx context.Context, m *gwm.Manager, query string) (worktree.Classified, error) {
	if query != "" {
		if target, err := m.Resolve(ctx, query); err == nil {
			return target, nil
		}
	}

	entries, err := m.ListEnriched(ctx)
	if err != nil {
		return worktree.Classified{}, err
	}
	if len(entries) == 0 {
		return worktree.Classified{}, errors.New("no worktrees to choose from")
	}

	items := make([]picker.Item, len(entries))
	for i, e := range entries {
		items[i] = picker.Item{Label: e.DisplayBranch(), Preview: e.Path}
	}

	result, err := picker.Run(picker.New(items, false, nil))
	if err != nil {
		return worktree.Classified{}, err
	}
	if result.Cancelled || len(result.Selected) == 0 {
		return worktree.Classified{}, errs.ErrCancelled
	}

	selected := result.Selected[0].Label
	for _, e := range entries {
		if e.DisplayBranch() == selected {
			return e.Classified, nil
		}
	}
	return worktree.Classified{}, fmt.Errorf("picker returned an item not in the list: %q", selected)
}

// pickWorktreesForRemoval resolves the targets for a remove invocation: an
// exact query match bypasses the picker, otherwise the multi-select picker
// collects the selection with Main/Active entries disabled (§4.7).
func pickWorktreesForRemoval(ctx context.Context, m *gwm.Manager, query string) ([]worktree.Classified, error) {
	if query != "" {
		if target, err := m.Resolve(ctx, query); err == nil {
			return []worktree.Classified{target}, nil
		}
	}

	entries, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("no worktrees to choose from")
	}

	items := make([]picker.Item, len(entries))
	for i, e := range entries {
		items[i] = picker.Item{Label: e.DisplayBranch(), Preview: e.Path, Disabled: e.IsMain || e.IsActive}
	}

	result, err := picker.Run(picker.New(items, true, nil))
	if err != nil {
		return nil, err
	}
	if result.Cancelled || len(result.Selected) == 0 {
		return nil, errs.ErrCancelled
	}

	selectedLabels := make(map[string]bool, len(result.Selected))
	for _, item := range result.Selected {
		selectedLabels[item.Label] = true
	}

	var targets []worktree.Classified
	for _, e := range entries {
		if selectedLabels[e.DisplayBranch()] {
			targets = append(targets, e)
		}
	}
	return targets, nil
}

// pickBranchForAdd runs the add flow's branch-selection half (§4.3, §4.9):
// free text entry, or Tab to fetch and pick from remote-tracking branches.
func pickBranchForAdd(cmd *cobra.Command, m *gwm.Manager) (string, error) {
	fetchRemoteBranches := func() tea.Msg {
		branches, err := gitops.ForEachRemoteRef(cmd.Context(), m.Git(), m.MainRoot())
		if err != nil {
			return picker.RemoteBranchesMsg(nil)
		}
		items := make([]picker.Item, len(branches))
		for i, b := range branches {
			items[i] = picker.Item{Label: b.Name, Preview: b.Subject}
		}
		return picker.RemoteBranchesMsg(items)
	}

	final, err := picker.RunAddFlow(picker.NewAddModel(fetchRemoteBranches))
	if err != nil {
		return "", err
	}
	if final.Choice() == picker.ChoiceCancel {
		return "", errs.ErrCancelled
	}
	if final.Branch() == "" {
		return "", errs.ErrCancelled
	}
	return final.Branch(), nil
}

func newAddCommand() *cobra.Command {
	var (
		remoteFlag    bool
		fromFlag      string
		cdFlag        bool
		skipHooksFlag bool
		deferredFlag  string
	)

	cmd := &cobra.Command{
		Use:   "add [branch]",
		Short: "Create a new worktree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deferredFlag != "" {
				return runDeferredHooks(cmd, deferredFlag)
			}

			m, err := newManager(cmd.Context())
			if err != nil {
				return err
			}

			var branch string
			interactive := len(args) == 0
			if interactive {
				branch, err = pickBranchForAdd(cmd, m)
				if err != nil {
					if errors.Is(err, errs.ErrCancelled) {
						return nil
					}
					return err
				}
			} else {
				branch = args[0]
			}

			confirmTrust := func(outcome trust.Outcome) (string, error) {
				if !interactive {
					return "cancel", nil
				}
				confirmed, err := picker.RunAddFlow(picker.NewConfirmModel(outcome))
				if err != nil {
					return "", err
				}
				switch confirmed.Choice() {
				case picker.ChoiceTrust:
					return "trust", nil
				case picker.ChoiceOnce:
					return "once", nil
				default:
					return "cancel", nil
				}
			}

			result, err := m.Add(cmd.Context(), branch, gwm.AddOptions{
				FromBranch:   fromFlag,
				IsRemote:     remoteFlag,
				SkipHooks:    skipHooksFlag,
				Interactive:  interactive,
				ConfirmTrust: confirmTrust,
				Stdout:       cmd.OutOrStdout(),
				Stderr:       cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created worktree at %s\n", result.WorktreePath)

			if cdFlag {
				if _, err := shellbridge.WriteCwd(result.WorktreePath); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&remoteFlag, "remote", false, "Track an existing remote branch")
	cmd.Flags().StringVar(&fromFlag, "from", "", "Base branch for a new branch")
	cmd.Flags().BoolVar(&cdFlag, "cd", false, "Write the new worktree path to the cwd side-channel")
	cmd.Flags().BoolVar(&skipHooksFlag, "skip-hooks", false, "Skip post-create hooks")
	cmd.Flags().StringVar(&deferredFlag, "run-deferred-hooks", "", "Run hooks from a deferred-hooks document written by a prior add with GWM_HOOKS_FILE set, then exit")

	return cmd
}

func newRemoveCommand() *cobra.Command {
	var (
		forceFlag      bool
		cleanBranchStr string
	)

	cmd := &cobra.Command{
		Use:   "remove [query]",
		Short: "Remove a worktree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(cmd.Context())
			if err != nil {
				return err
			}

			query := ""
			if len(args) > 0 {
				query = args[0]
			}

			targets, err := pickWorktreesForRemoval(cmd.Context(), m, query)
			if err != nil {
				if errors.Is(err, errs.ErrCancelled) {
					return nil
				}
				return err
			}

			mode := m.Config().CleanBranch
			if cleanBranchStr != "" {
				mode = config.CleanBranchMode(cleanBranchStr)
			}

			results, err := m.Remove(cmd.Context(), targets, remove.Options{
				Force:      forceFlag,
				BranchMode: mode,
				ConfirmYN: func(branch string) (bool, error) {
					fmt.Fprintf(cmd.ErrOrStderr(), "delete local branch %q? [y/N] ", branch)
					var answer string
					fmt.Fscanln(cmd.InOrStdin(), &answer)
					return answer == "y" || answer == "yes", nil
				},
			})
			if err != nil {
				return err
			}

			for _, r := range results {
				switch {
				case r.Err != nil && r.WorktreeRemoved:
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s, but branch cleanup failed: %v\n", r.Path, r.Err)
				case r.Err != nil:
					fmt.Fprintf(cmd.ErrOrStderr(), "failed to remove %s: %v\n", r.Path, r.Err)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", r.Path)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Force removal even with local changes")
	cmd.Flags().StringVar(&cleanBranchStr, "clean-branch", "", "auto|ask|never (default from config)")

	return cmd
}

func newGoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "go [query]",
		Short: "Resolve a worktree and print its path or populate the cwd side-channel",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(cmd.Context())
			if err != nil {
				return err
			}

			query := ""
			if len(args) > 0 {
				query = args[0]
			}

			target, err := pickWorktree(cmd.Context(), m, query)
			if err != nil {
				if errors.Is(err, errs.ErrCancelled) {
					return nil
				}
				return err
			}

			wrote, err := shellbridge.WriteCwd(target.Path)
			if err != nil {
				return err
			}
			if !wrote {
				fmt.Fprintln(cmd.OutOrStdout(), target.Path)
			}
			return nil
		},
	}
}

func newCleanCommand() *cobra.Command {
	var (
		dryRunFlag bool
		forceFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Enumerate and remove worktrees that are safe to discard",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(cmd.Context())
			if err != nil {
				return err
			}

			candidates, err := m.CleanCandidates(cmd.Context())
			if err != nil {
				return err
			}

			if len(candidates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean")
				return nil
			}

			for _, c := range candidates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", c.Path, c.Branch)
			}

			if dryRunFlag {
				return nil
			}

			if !forceFlag {
				fmt.Fprint(cmd.ErrOrStderr(), "remove all of the above? [Enter to confirm, Esc/Ctrl-C to cancel] ")
				var answer string
				fmt.Fscanln(cmd.InOrStdin(), &answer)
				if answer != "" {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
			}

			for _, c := range candidates {
				if err := m.RemoveCleanCandidate(cmd.Context(), c); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed to remove %s: %v\n", c.Path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", c.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Print candidates without removing them")
	cmd.Flags().BoolVar(&forceFlag, "force", false, "Skip the confirmation prompt")

	return cmd
}

func newPullMainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull-main",
		Short: "Run git pull in every worktree on a main branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager(cmd.Context())
			if err != nil {
				return err
			}

			results, err := m.PullMain(cmd.Context())
			if err != nil {
				return err
			}

			failed := 0
			for path, pullErr := range results {
				if pullErr != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, pullErr)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pulled %s\n", path)
			}
			if failed > 0 && failed == len(results) {
				return fmt.Errorf("pull-main failed in all %d worktrees", failed)
			}
			return nil
		},
	}
}

// runDeferredHooks implements `add --run-deferred-hooks <file>` (§4.3(d),
// §4.8): read the document the shell wrapper re-invoked us with, run its
// hooks, and return before the normal add path (no branch is created).
func runDeferredHooks(cmd *cobra.Command, path string) error {
	doc, err := shellbridge.ReadDeferredHooks(path)
	if err != nil {
		return err
	}

	_, err = hooks.Run(cmd.Context(), "postCreate", doc.WorktreePath, doc.Commands, doc.HookContext(), hooks.Options{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	return err
}
