package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"jqs/internal/accountant"
	"jqs/internal/config"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Print current resource usage against totals",
	Args:  cobra.NoArgs,
	RunE:  runNodes,
}

// schedulerStaleTicks is how many T_tick intervals locks/scheduler.tick
// can go unwritten before nodes warns the scheduler daemon looks dead.
const schedulerStaleTicks = 5

func runNodes(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	a := accountant.New(s.Root)
	if err := a.Reload(); err != nil {
		return withExit(3, err)
	}

	p := numberPrinter()
	out := cmd.OutOrStdout()
	p.Fprintf(out, "cores: %d/%d\n", a.Usage.CoresUsed, a.Limits.CoresTotal)
	p.Fprintf(out, "mem_mb: %d/%d\n", a.Usage.MemMBUsed, a.Limits.MemMBTotal)

	info, err := os.Stat(s.SchedulerTickPath())
	stale := err != nil || time.Since(info.ModTime()) > schedulerStaleTicks*config.DefaultTick
	if stale {
		p.Fprintf(out, "(scheduler appears stopped)\n")
	}
	return nil
}
