package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jqs/internal/jobfile"
)

var qCmd = &cobra.Command{
	Use:   "q",
	Short: "List every job in queue/, running/, and finished/",
	Args:  cobra.NoArgs,
	RunE:  runQ,
}

func runQ(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}

	var jobs []*jobfile.Job
	for _, dir := range []string{s.QueueDir(), s.RunningDir(), s.FinishedDir()} {
		dirJobs, err := s.List(dir)
		if err != nil {
			return withExit(3, err)
		}
		jobs = append(jobs, dirJobs...)
	}

	p := numberPrinter()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "JOBID\tSTATE\tNAME\tCORES\tMEM_MB\tSUBMIT\tSTART\tEND")
	for _, j := range jobs {
		p.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			j.JobID, j.State, j.Name, j.Cores, j.MemMB,
			formatTime(j.SubmitTime), formatTime(j.StartTime), formatTime(j.EndTime))
	}
	return w.Flush()
}

func formatTime(ts *int64) string {
	if ts == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *ts)
}
