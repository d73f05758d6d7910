package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyjia/reviewflow/internal/application/service"
	"github.com/garyjia/reviewflow/internal/domain/workflow"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the workflow database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(service.WorkflowManager) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", ctx.config.Database.Path)
				return nil
			})
		},
	}
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <tracked-item-id>",
		Short: "Open a workflow for a tracked item, owned by --as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd.Context(), func(m service.WorkflowManager) error {
				id, err := m.CreateWorkflow(cmd.Context(), p.ID, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newPhaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "phase <workflow-id>",
		Short: "Show the current phase of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(m service.WorkflowManager) error {
				phase, err := m.GetCurrentPhase(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), phase)
				return nil
			})
		},
	}
}

func newNextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next <workflow-id>",
		Short: "List the phases --as may move a workflow to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			return ctx.withManager(cmd.Context(), func(m service.WorkflowManager) error {
				phases, err := m.GetNextPhases(cmd.Context(), args[0], p)
				if err != nil {
					return err
				}
				if len(phases) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No transitions available")
					return nil
				}
				for _, phase := range phases {
					fmt.Fprintln(cmd.OutOrStdout(), phase)
				}
				return nil
			})
		},
	}
}

func newTransitionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transition <workflow-id> <phase>",
		Short: "Move a workflow to a new phase on behalf of --as",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.principal()
			if err != nil {
				return err
			}
			desired, err := workflow.ParsePhase(args[1])
			if err != nil {
				return err
			}
			return ctx.withManager(cmd.Context(), func(m service.WorkflowManager) error {
				phase, err := m.Transition(cmd.Context(), args[0], desired, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s is now %s\n", args[0], phase)
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var mine bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <phase>",
		Short: "List open workflows in a phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := workflow.ParsePhase(args[0])
			if err != nil {
				return err
			}
			var p workflow.Principal
			if mine {
				if p, err = ctx.principal(); err != nil {
					return err
				}
			}
			return ctx.withManager(cmd.Context(), func(m service.WorkflowManager) error {
				var snapshots []workflow.Snapshot
				if mine {
					snapshots, err = m.ListOwnerOpenByPhase(cmd.Context(), p, phase)
				} else {
					snapshots, err = m.ListOpenByPhase(cmd.Context(), phase)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, snapshots)
				}
				if len(snapshots) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No open workflows")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Tracked Item", "Owner", "Editor", "Phase"},
					buildSnapshotRows(snapshots),
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "Only workflows owned by --as")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <workflow-id>",
		Short: "Show every recorded state of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(m service.WorkflowManager) error {
				history, err := m.GetHistory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, history)
				}
				rows := make([][]string, 0, len(history))
				for i, snap := range history {
					rows = append(rows, []string{strconv.Itoa(i), string(snap.Phase), dash(snap.EditorID)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Phase", "Editor"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newFindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "find <tracked-item-id>",
		Short: "Show the open workflow for a tracked item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(m service.WorkflowManager) error {
				id, snap, err := m.FindOpenWorkflowForItem(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Workflow", "Owner", "Editor", "Phase"},
					[][]string{{id, snap.OwnerID, dash(snap.EditorID), string(snap.Phase)}},
					nil,
				))
				return nil
			})
		},
	}
}

func buildSnapshotRows(snapshots []workflow.Snapshot) [][]string {
	rows := make([][]string, 0, len(snapshots))
	for _, snap := range snapshots {
		rows = append(rows, []string{snap.TrackedItemID, snap.OwnerID, dash(snap.EditorID), string(snap.Phase)})
	}
	return rows
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
