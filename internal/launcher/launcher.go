// Package launcher implements the C7 seam of spec §4.7: spawning a job
// as an OS-level resource-limited process and later probing or
// terminating it by an opaque handle that is derivable purely from the
// jobid, so recovery after a daemon restart needs no in-memory state.
package launcher

import "jqs/internal/jobfile"

// ErrLaunchFailed wraps any failure to start a unit (spec §4.6: "release
// reservation, finalize FAILED(LaunchError)").
type ErrLaunchFailed struct {
	Reason string
}

func (e *ErrLaunchFailed) Error() string { return "launch error: " + e.Reason }

// Launcher is the seam for platform variation named in spec §4.7 and §9
// ("transient scopes, cgroups v2 directly, or a mock for tests"). The
// scheduler depends only on this interface, never on a concrete
// resource-limiting mechanism.
type Launcher interface {
	// Launch starts job under resource limits derived from job.Cores and
	// job.MemMB and returns an opaque handle identifying the unit.
	Launch(job *jobfile.Job) (handle string, err error)

	// Alive reports whether the unit identified by handle is still
	// running. It must work even if called from a process that did not
	// itself call Launch (post-restart probing).
	Alive(handle string) (bool, error)

	// ExitCode returns the unit's exit code once it has terminated.
	// stillRunning is true if the unit has not yet exited.
	ExitCode(handle string) (code int, stillRunning bool, err error)

	// Terminate asks the unit to stop: a graceful signal immediately,
	// and a forceful signal after graceSec if it hasn't exited by then.
	// Terminate does not block for graceSec; it schedules the forceful
	// follow-up asynchronously so the scheduler's tick loop never waits
	// on a running job (spec §5).
	Terminate(handle string, graceSec int) error
}
