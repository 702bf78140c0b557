package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskflow/internal/board"
	"taskflow/internal/confirm"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage tasks from the command line",
	}
	cmd.PersistentFlags().String("api", "", "base URL of the task API (default http://localhost:3030)")
	cmd.PersistentFlags().BoolP("yes", "y", false, "answer yes to confirmation prompts")

	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksAddCmd())
	cmd.AddCommand(tasksDoneCmd())
	cmd.AddCommand(tasksEditCmd())
	cmd.AddCommand(tasksRemoveCmd())
	return cmd
}

// newController builds a board controller that prompts on the terminal and
// prints feedback to the command output.
func newController(cmd *cobra.Command) (*board.Controller, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	api, err := newAPIClient(cfg.Client)
	if err != nil {
		return nil, err
	}

	var gate board.Gate = confirm.ForTerminal(os.Stdin, cmd.ErrOrStderr())
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		gate = confirm.Always(true)
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	notify := board.NotifyFunc(func(fb board.Feedback) {
		if fb.Err {
			fmt.Fprintln(errOut, fb.Message)
			return
		}
		fmt.Fprintln(out, fb.Message)
	})
	return board.New(api, gate, notify), nil
}

func tasksListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := newController(cmd)
			if err != nil {
				return err
			}
			byDate, _ := cmd.Flags().GetBool("by-date")
			if byDate {
				err = ctrl.ToggleSort(cmd.Context())
			} else {
				err = ctrl.Reload(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), ctrl.View())
		},
	}
	cmd.Flags().Bool("by-date", false, "sort by due date, soonest first")
	return cmd
}

func tasksAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add TITLE DUE_DATE",
		Short: "Add a task due on DUE_DATE (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := newController(cmd)
			if err != nil {
				return err
			}
			return ctrl.Create(cmd.Context(), args[0], args[1])
		},
	}
}

func tasksDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := newController(cmd)
			if err != nil {
				return err
			}
			return ctrl.Complete(cmd.Context(), id)
		},
	}
}

func tasksEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID TITLE DUE_DATE",
		Short: "Replace the title and due date of a task",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := newController(cmd)
			if err != nil {
				return err
			}
			if err := ctrl.Reload(cmd.Context()); err != nil {
				return err
			}
			if err := ctrl.StartEdit(id); err != nil {
				return err
			}
			if err := ctrl.SetDraft(id, board.Draft{Title: args[1], DueDate: args[2]}); err != nil {
				return err
			}
			return ctrl.CommitEdit(cmd.Context(), id)
		},
	}
}

func tasksRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			ctrl, err := newController(cmd)
			if err != nil {
				return err
			}
			return ctrl.Delete(cmd.Context(), id)
		},
	}
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

func printTasks(w io.Writer, v board.View) error {
	if v.Empty() {
		_, err := fmt.Fprintln(w, v.Placeholder)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCREATED\tDUE\tSTATUS")
	for _, row := range v.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", row.ID, row.Title, row.Created, row.Due, row.StatusLabel)
	}
	return tw.Flush()
}
