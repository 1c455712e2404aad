package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jqs/internal/jobfile"
)

var infoCmd = &cobra.Command{
	Use:   "info <jobid>",
	Short: "Print the full decoded record for a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	jobid, err := strconv.Atoi(args[0])
	if err != nil {
		return withExit(1, fmt.Errorf("invalid jobid %q", args[0]))
	}

	s, err := openStore()
	if err != nil {
		return err
	}

	_, job, err := s.Find(jobid)
	if err != nil {
		return withExit(4, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(jobfile.Encode(job)))
	return nil
}
