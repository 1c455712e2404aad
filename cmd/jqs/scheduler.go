package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jqs/internal/accountant"
	"jqs/internal/config"
	"jqs/internal/jqslog"
	"jqs/internal/launcher"
	schedpkg "jqs/internal/scheduler"
	"jqs/internal/sysinfo"
)

// secondsOrDefault converts a CLI-supplied second count into a Duration,
// falling back to def when the flag was left at its zero value.
func secondsOrDefault(seconds int, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}

var (
	schedFlagTick       int
	schedFlagKillGrace  int
	schedFlagCgroupRoot string
	schedFlagLogFile    string
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the tick loop in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runScheduler,
}

func init() {
	schedulerCmd.Flags().IntVar(&schedFlagTick, "tick", int(config.DefaultTick.Seconds()), "tick period in seconds")
	schedulerCmd.Flags().IntVar(&schedFlagKillGrace, "kill-grace", int(config.DefaultKillGrace.Seconds()), "seconds between SIGTERM and SIGKILL on cancellation")
	schedulerCmd.Flags().StringVar(&schedFlagCgroupRoot, "cgroup-root", config.DefaultCgroupRoot, "cgroup v2 parent under which per-job leaves are created")
	schedulerCmd.Flags().StringVar(&schedFlagLogFile, "log-file", "", "also log to this file (daily-rotated)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	jqslog.Init(jqslog.Options{Console: true, FilePath: schedFlagLogFile, Daily: true})

	s, err := openStore()
	if err != nil {
		return withExit(1, err)
	}
	if err := s.RecoverStartup(); err != nil {
		return withExit(1, err)
	}

	a := accountant.New(s.Root)
	cores := sysinfo.NumCores()
	memMB, err := sysinfo.TotalMemMB()
	if err != nil {
		jqslog.Warnf("auto-detect total memory: %v; defaulting mem_mb_total to 0 until limits.json is set", err)
	}
	if err := a.InitLimits(accountant.Limits{CoresTotal: cores, MemMBTotal: memMB}); err != nil {
		return withExit(1, err)
	}
	if err := a.Reload(); err != nil {
		return withExit(1, err)
	}

	l := launcher.NewCgroupLauncher(schedFlagCgroupRoot)

	sc := schedpkg.New(s, a, l,
		secondsOrDefault(schedFlagTick, config.DefaultTick),
		secondsOrDefault(schedFlagKillGrace, config.DefaultKillGrace))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jqslog.Logf("scheduler starting: root=%s cores_total=%d mem_mb_total=%d", s.Root, a.Limits.CoresTotal, a.Limits.MemMBTotal)
	if err := sc.Run(ctx); err != nil {
		return withExit(1, err)
	}
	jqslog.Log("scheduler stopped")
	return nil
}
