package main

import (
	"fmt"
	"io"
	"strings"

	"daybook/internal/app"
	"daybook/internal/core/session"
	"daybook/internal/logging"
	"daybook/internal/storage"

	"github.com/spf13/cobra"
)

func newHistoryCmd(options *rootOptions) *cobra.Command {
	var limit int
	var dbPath string
	var goals bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, _, err := loadSettings(options); err != nil {
				return err
			}
			defer logging.Close()

			if dbPath == "" {
				resolved, err := storage.HistoryPath(app.Name)
				if err != nil {
					return err
				}
				dbPath = resolved
			}
			history, err := storage.OpenHistory(dbPath)
			if err != nil {
				return err
			}
			defer history.Close()

			sessions, err := history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), sessions, goals)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum sessions to list (0 for all)")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database (default <config dir>/"+app.Name+"/history.db)")
	cmd.Flags().BoolVar(&goals, "goals", false, "list each session's goals")
	return cmd
}

func printHistory(out io.Writer, sessions []session.Session, goals bool) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, "no completed sessions")
		return
	}
	for _, item := range sessions {
		line := fmt.Sprintf("%s  goals %d/%d  distractions %d",
			item.StartTime.Local().Format("2006-01-02 15:04"),
			item.FinishedGoals(), len(item.Goals), len(item.Distractions))
		if item.NoteID != "" {
			line += "  note " + item.NoteID
		}
		if item.DaySummary != "" {
			line += "  \"" + strings.ReplaceAll(item.DaySummary, "\n", " ") + "\""
		}
		_, _ = fmt.Fprintln(out, line)
		if !goals {
			continue
		}
		for _, goal := range item.Goals {
			mark := "[ ]"
			if goal.Finished {
				mark = "[x]"
			}
			_, _ = fmt.Fprintf(out, "    %s %s\n", mark, goal.Text)
		}
	}
}
