package scheduler

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"jqs/internal/jqslog"
)

// Run drives the tick loop until ctx is cancelled. Its outer shape — run
// a pass, then either be told to stop or wait out the interval — mirrors
// oms/runLog.go's doExitSleep(interval, doneC) used throughout
// oms/runJobControl.go's scanJobs/scanOuterJobs loops, generalized here
// with a fsnotify watch on queue/ and running/ so a tick can also be
// triggered the moment a record changes, per spec §9's note that
// filesystem notifications may substitute for pure polling "without
// changing observable semantics". T_tick remains the authoritative
// fallback when the watch can't be established or drops an event.
func (sc *Scheduler) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		jqslog.Warnf("fsnotify unavailable, falling back to pure polling: %v", err)
		watcher = nil
	} else {
		defer watcher.Close()
		for _, dir := range []string{sc.Store.QueueDir(), sc.Store.RunningDir()} {
			if err := watcher.Add(dir); err != nil {
				jqslog.Warnf("watch %s: %v", dir, err)
			}
		}
	}

	for {
		if err := sc.Tick(); err != nil {
			return err
		}

		var events <-chan fsnotify.Event
		var errs <-chan error
		if watcher != nil {
			events = watcher.Events
			errs = watcher.Errors
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sc.TickInterval):
		case _, ok := <-events:
			if !ok {
				watcher = nil
			}
			// A real change coalesces naturally: the next Tick() call
			// reads current directory state, not the event itself.
		case err, ok := <-errs:
			if ok {
				jqslog.Warnf("fsnotify: %v", err)
			}
		}
	}
}
