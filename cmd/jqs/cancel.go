package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jqs/internal/store"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <jobid>",
	Short: "Set cancel_requested=true on a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	jobid, err := strconv.Atoi(args[0])
	if err != nil {
		return withExit(1, fmt.Errorf("invalid jobid %q", args[0]))
	}

	s, err := openStore()
	if err != nil {
		return err
	}

	if err := s.MarkCancelRequested(jobid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return withExit(4, err)
		}
		if errors.Is(err, store.ErrAlreadyTerminal) {
			return withExit(5, err)
		}
		return withExit(3, err)
	}
	return nil
}
