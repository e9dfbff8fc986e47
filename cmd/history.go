package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vmacro/internal/history"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		limit int
		prune time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent playback runs",
		Long: `Show the most recent queue items played and how they ended.

Examples:
  vmacro history
  vmacro history -n 50
  vmacro history --prune 720h   # Delete runs older than 30 days`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.cfgMgr.Get().History.DBPath()
			if err != nil {
				return err
			}
			store, err := history.OpenAt(path)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if prune > 0 {
				n, err := store.DeleteOlderThan(prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %d runs older than %s\n", n, prune)
				return nil
			}

			runs, err := store.ListRecent(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, dimStyle.Render("No runs recorded yet"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tNAME\tSTATUS\tDURATION\tERROR")
			for _, r := range runs {
				dur := "-"
				if !r.FinishedAt.IsZero() {
					dur = formatDuration(r.Duration())
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Name,
					statusStyle(r.Status).Render(r.Status),
					dur,
					truncate(r.ErrorMessage, 60),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete finished runs older than this instead of listing")
	return cmd
}
