package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Swind/go-coop-task/core"
)

// writeRegistry prints one row per registered task.
func writeRegistry(w io.Writer, infos []core.TaskInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATE\tBACKEND\tNEXT\tTICKS\tLIFETIME\tLAST")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			info.ID, info.Name, info.State, info.CurrentBackend, info.NextBackend,
			info.Ticks, info.LifeTime.Round(time.Millisecond), info.LastYielded)
	}
	return tw.Flush()
}

// writeSummary prints scheduler totals followed by the most recent finishes.
func writeSummary(w io.Writer, stats core.SchedulerStats, recent []core.TaskRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "passes\t%d\n", stats.Passes)
	fmt.Fprintf(tw, "completed\t%d\n", stats.Completed)
	fmt.Fprintf(tw, "aborted\t%d\n", stats.Aborted)
	fmt.Fprintf(tw, "panicked\t%d\n", stats.Panicked)
	fmt.Fprintf(tw, "still registered\t%d\n", stats.Registered)
	if len(recent) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ID\tNAME\tSTATE\tBACKEND\tTICKS\tLIFETIME")
		for _, r := range recent {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				r.TaskID, r.Name, r.State, r.Backend, r.Ticks, r.LifeTime.Round(time.Millisecond))
		}
	}
	return tw.Flush()
}
