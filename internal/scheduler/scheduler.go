// Package scheduler implements the C6 tick loop: recover, honor
// cancellations, admit with backfill, reap, enforce time limits (spec
// §4.6). It is built around explicit *store.Store, *accountant.Accountant
// and launcher.Launcher values rather than package globals, per spec
// §9's anti-global-state design note — a deliberate departure from the
// teacher's own package-global RunCatalog.
package scheduler

import (
	"strconv"
	"time"

	"jqs/internal/accountant"
	"jqs/internal/fsutil"
	"jqs/internal/jobfile"
	"jqs/internal/jqslog"
	"jqs/internal/launcher"
	"jqs/internal/store"
)

const maxRetries = 3

// Scheduler runs the tick loop over one Store/Accountant/Launcher combination.
type Scheduler struct {
	Store      *store.Store
	Accountant *accountant.Accountant
	Launcher   launcher.Launcher

	TickInterval time.Duration
	KillGrace    time.Duration

	recovered     bool
	failCounts    map[int]int
	terminateSent map[int]bool
}

// New constructs a Scheduler. tick and killGrace correspond to spec
// §4.6's T_tick (default 1s) and T_kill_grace (default 10s).
func New(s *store.Store, a *accountant.Accountant, l launcher.Launcher, tick, killGrace time.Duration) *Scheduler {
	return &Scheduler{
		Store:         s,
		Accountant:    a,
		Launcher:      l,
		TickInterval:  tick,
		KillGrace:     killGrace,
		failCounts:    map[int]int{},
		terminateSent: map[int]bool{},
	}
}

func now() int64 { return time.Now().Unix() }

// noteFailure records a transient failure for jobid and reports whether
// the retry budget (spec §5: "retry up to 3 times at the next tick") is
// now exhausted.
func (sc *Scheduler) noteFailure(jobid int, context string, err error) (exhausted bool) {
	sc.failCounts[jobid]++
	jqslog.Warnf("job %d: %s: %v (attempt %d/%d)", jobid, context, err, sc.failCounts[jobid], maxRetries)
	return sc.failCounts[jobid] >= maxRetries
}

func (sc *Scheduler) clearFailure(jobid int) {
	delete(sc.failCounts, jobid)
}

// Tick runs one full pass of the six-step loop (spec §4.6). It never
// returns an error for a single job's failure; only directory-level I/O
// errors that make the whole step meaningless propagate.
func (sc *Scheduler) Tick() error {
	if !sc.recovered {
		if err := sc.recover(); err != nil {
			return err
		}
		sc.recovered = true
	}
	if err := sc.Accountant.Reload(); err != nil {
		jqslog.Warnf("reload limits/usage: %v", err)
	}

	sc.honorQueuedCancellations()
	sc.honorRunningCancellations()
	sc.admit()
	sc.reap()
	sc.enforceTimeLimits()

	if err := sc.touchHeartbeat(); err != nil {
		jqslog.Warnf("write scheduler heartbeat: %v", err)
	}
	return nil
}

// touchHeartbeat records that a tick just completed, so the nodes command
// can warn an operator when the scheduler daemon has died (spec §3:
// locks/scheduler.tick, mtime = last completed tick).
func (sc *Scheduler) touchHeartbeat() error {
	return fsutil.WriteFileAtomic(sc.Store.SchedulerTickPath(), []byte(strconv.FormatInt(now(), 10)))
}

// recover implements step 1: on the first tick, any running/ record
// whose supervisor_handle no longer corresponds to a live unit is
// finalized FAILED(OrphanedOnRestart) and its resources released.
func (sc *Scheduler) recover() error {
	jobs, corrupt, err := sc.Store.ListWithCorrupt(sc.Store.RunningDir())
	if err != nil {
		return err
	}
	for _, rec := range corrupt {
		if err := sc.Store.Quarantine(rec, now()); err != nil {
			jqslog.Warnf("quarantine corrupt running record %s: %v", rec.Path, err)
		}
	}

	for _, j := range jobs {
		if j.SupervisorHandle == nil {
			sc.finalizeRunning(j, jobfile.Failed, "OrphanedOnRestart")
			continue
		}
		alive, err := sc.Launcher.Alive(*j.SupervisorHandle)
		if err != nil {
			jqslog.Warnf("job %d: recovery probe: %v", j.JobID, err)
			continue
		}
		if !alive {
			sc.finalizeRunning(j, jobfile.Failed, "OrphanedOnRestart")
		}
	}
	return nil
}

// honorQueuedCancellations implements step 2.
func (sc *Scheduler) honorQueuedCancellations() {
	jobs, err := sc.Store.List(sc.Store.QueueDir())
	if err != nil {
		jqslog.Warnf("list queue: %v", err)
		return
	}
	for _, j := range jobs {
		if !j.CancelRequested {
			continue
		}
		end := now()
		err := sc.Store.Move(j.JobID, sc.Store.QueueDir(), sc.Store.FinishedDir(), func(r *jobfile.Job) *jobfile.Job {
			r.State = jobfile.Cancelled
			r.EndTime = &end
			r.Reason = "CancelledBeforeAdmission"
			return r
		})
		if err != nil {
			sc.noteFailure(j.JobID, "cancel queued", err)
			continue
		}
		sc.clearFailure(j.JobID)
	}
}

// honorRunningCancellations implements step 3: the reap in step 5
// finalizes the record once the launcher reports the unit has exited.
func (sc *Scheduler) honorRunningCancellations() {
	jobs, err := sc.Store.List(sc.Store.RunningDir())
	if err != nil {
		jqslog.Warnf("list running: %v", err)
		return
	}
	for _, j := range jobs {
		if !j.CancelRequested || j.SupervisorHandle == nil {
			continue
		}
		if sc.terminateSent[j.JobID] {
			continue
		}
		if err := sc.Launcher.Terminate(*j.SupervisorHandle, int(sc.KillGrace.Seconds())); err != nil {
			jqslog.Warnf("job %d: terminate: %v", j.JobID, err)
			continue
		}
		sc.terminateSent[j.JobID] = true
	}
}

// admit implements step 4, including the backfill clause: a candidate
// that doesn't fit is skipped, not blocking, so a later smaller job can
// still be admitted in the same tick.
func (sc *Scheduler) admit() {
	jobs, corrupt, err := sc.Store.ListWithCorrupt(sc.Store.QueueDir())
	if err != nil {
		jqslog.Warnf("list queue: %v", err)
		return
	}
	for _, rec := range corrupt {
		if err := sc.Store.Quarantine(rec, now()); err != nil {
			jqslog.Warnf("quarantine corrupt queue record %s: %v", rec.Path, err)
		}
	}

	for _, j := range jobs {
		req := accountant.Request{Cores: j.Cores, MemMB: j.MemMB}

		if sc.Accountant.Oversized(req) {
			end := now()
			err := sc.Store.Move(j.JobID, sc.Store.QueueDir(), sc.Store.FinishedDir(), func(r *jobfile.Job) *jobfile.Job {
				r.State = jobfile.Failed
				r.EndTime = &end
				r.Reason = "OversizedRequest"
				return r
			})
			if err != nil {
				sc.noteFailure(j.JobID, "finalize oversized", err)
			} else {
				sc.clearFailure(j.JobID)
			}
			continue
		}

		admitted, err := sc.tryAdmit(j, req)
		if err != nil {
			sc.noteFailure(j.JobID, "admit", err)
			continue
		}
		if admitted {
			sc.clearFailure(j.JobID)
		}
		// not admitted, not an error: keep scanning for backfill.
	}
}

func (sc *Scheduler) tryAdmit(j *jobfile.Job, req accountant.Request) (bool, error) {
	lock := sc.Store.ResourcesLock()
	if err := lock.Lock(); err != nil {
		return false, err
	}

	if err := sc.Accountant.Reload(); err != nil {
		_ = lock.Unlock()
		return false, err
	}
	if !sc.Accountant.Fits(req) {
		_ = lock.Unlock()
		return false, nil
	}
	if err := sc.Accountant.Reserve(req); err != nil {
		_ = lock.Unlock()
		return false, err
	}

	start := now()
	err := sc.Store.Move(j.JobID, sc.Store.QueueDir(), sc.Store.RunningDir(), func(r *jobfile.Job) *jobfile.Job {
		r.State = jobfile.Running
		r.StartTime = &start
		return r
	})
	if err != nil {
		_ = sc.Accountant.Release(req)
		_ = lock.Unlock()
		return false, err
	}

	// The reservation is committed and the record is in running/: the
	// critical section ends here. Launching the child must never happen
	// while resources.lock is held (spec §4.1, §4.6 step 4).
	_ = lock.Unlock()

	handle, err := sc.Launcher.Launch(j)
	if err != nil {
		_ = sc.Accountant.Release(req)
		end := now()
		moveErr := sc.Store.Move(j.JobID, sc.Store.RunningDir(), sc.Store.FinishedDir(), func(r *jobfile.Job) *jobfile.Job {
			r.State = jobfile.Failed
			r.EndTime = &end
			r.Reason = "LaunchError"
			return r
		})
		if moveErr != nil {
			jqslog.Warnf("job %d: finalize after launch error: %v", j.JobID, moveErr)
		}
		return true, nil
	}

	if err := sc.Store.Rewrite(j.JobID, sc.Store.RunningDir(), func(r *jobfile.Job) *jobfile.Job {
		r.SupervisorHandle = &handle
		return r
	}); err != nil {
		jqslog.Warnf("job %d: record supervisor handle: %v", j.JobID, err)
	}
	return true, nil
}

// reap implements step 5.
func (sc *Scheduler) reap() {
	jobs, err := sc.Store.List(sc.Store.RunningDir())
	if err != nil {
		jqslog.Warnf("list running: %v", err)
		return
	}
	for _, j := range jobs {
		if j.SupervisorHandle == nil {
			continue
		}
		code, stillRunning, err := sc.Launcher.ExitCode(*j.SupervisorHandle)
		if err != nil {
			sc.noteFailure(j.JobID, "reap", err)
			continue
		}
		if stillRunning {
			continue
		}

		state := jobfile.Finished
		reason := ""
		switch {
		case j.CancelRequested:
			state = jobfile.Cancelled
			reason = j.Reason
			if reason == "" {
				reason = "Cancelled"
			}
		case code != 0:
			state = jobfile.Failed
			reason = "NonZeroExit"
		}

		sc.finalizeRunningWithCode(j, state, reason, &code)
	}
}

// enforceTimeLimits implements step 6.
func (sc *Scheduler) enforceTimeLimits() {
	jobs, err := sc.Store.List(sc.Store.RunningDir())
	if err != nil {
		jqslog.Warnf("list running: %v", err)
		return
	}
	nowTs := now()
	for _, j := range jobs {
		if j.TimeLimitSec == nil || j.StartTime == nil || j.CancelRequested {
			continue
		}
		if nowTs-*j.StartTime <= int64(*j.TimeLimitSec) {
			continue
		}
		if j.SupervisorHandle != nil && !sc.terminateSent[j.JobID] {
			if err := sc.Launcher.Terminate(*j.SupervisorHandle, int(sc.KillGrace.Seconds())); err != nil {
				jqslog.Warnf("job %d: time limit terminate: %v", j.JobID, err)
			}
			sc.terminateSent[j.JobID] = true
		}
		if err := sc.Store.Rewrite(j.JobID, sc.Store.RunningDir(), func(r *jobfile.Job) *jobfile.Job {
			r.CancelRequested = true
			r.Reason = "TimeLimitExceeded"
			return r
		}); err != nil {
			jqslog.Warnf("job %d: mark time-limit cancellation: %v", j.JobID, err)
		}
	}
}

func (sc *Scheduler) finalizeRunning(j *jobfile.Job, state jobfile.State, reason string) {
	sc.finalizeRunningWithCode(j, state, reason, nil)
}

func (sc *Scheduler) finalizeRunningWithCode(j *jobfile.Job, state jobfile.State, reason string, code *int) {
	req := accountant.Request{Cores: j.Cores, MemMB: j.MemMB}
	end := now()
	err := sc.Store.Move(j.JobID, sc.Store.RunningDir(), sc.Store.FinishedDir(), func(r *jobfile.Job) *jobfile.Job {
		r.State = state
		r.EndTime = &end
		r.Reason = reason
		r.ExitCode = code
		return r
	})
	if err != nil {
		sc.noteFailure(j.JobID, "finalize running", err)
		return
	}
	sc.clearFailure(j.JobID)
	delete(sc.terminateSent, j.JobID)
	if releaseErr := sc.Accountant.Release(req); releaseErr != nil {
		jqslog.Warnf("job %d: release resources: %v", j.JobID, releaseErr)
	}
}
