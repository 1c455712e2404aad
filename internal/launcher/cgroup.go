package launcher

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	ps "github.com/keybase/go-ps"
	"golang.org/x/sys/unix"

	"jqs/internal/jobfile"
	"jqs/internal/jqslog"
)

// CgroupLauncher runs each job as a child process confined to its own
// cgroup v2 leaf, with cpu.max and memory.max set from the job's
// resource request. Grounded on spec §4.7 and §9's own suggestion
// ("cgroups v2 directly"); liveness is grounded on
// oms/runJobControl.go's ps.FindProcess(pid) + executable-suffix match
// (scanOuterJobs), generalized here to read the pid out of the cgroup
// instead of out of an in-memory map, so it also works after a restart.
//
// A unit's handle is its cgroup leaf name, "job-<jobid>", which the
// caller can always recompute from the jobid alone; no pid or other
// in-memory state is required to resolve a handle.
type CgroupLauncher struct {
	// CgroupRoot is the cgroup v2 parent under which a "job-<jobid>"
	// leaf is created per launch, e.g. /sys/fs/cgroup/jqs. The operator
	// is responsible for creating this parent with cpu and memory
	// controllers enabled (echo "+cpu +memory" > cgroup.subtree_control
	// in its own parent) before starting the scheduler.
	CgroupRoot string
}

// NewCgroupLauncher constructs a CgroupLauncher rooted at cgroupRoot.
func NewCgroupLauncher(cgroupRoot string) *CgroupLauncher {
	return &CgroupLauncher{CgroupRoot: cgroupRoot}
}

func handleName(jobid int) string {
	return fmt.Sprintf("job-%010d", jobid)
}

func (c *CgroupLauncher) dirFor(handle string) string {
	return filepath.Join(c.CgroupRoot, handle)
}

// Launch implements Launcher.
func (c *CgroupLauncher) Launch(job *jobfile.Job) (string, error) {
	handle := handleName(job.JobID)
	dir := c.dirFor(handle)

	if _, err := os.Stat(job.Workdir); err != nil {
		return "", &ErrLaunchFailed{Reason: fmt.Sprintf("workdir %s: %v", job.Workdir, err)}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &ErrLaunchFailed{Reason: fmt.Sprintf("create cgroup dir: %v", err)}
	}

	quota := job.Cores * 100000
	if err := os.WriteFile(filepath.Join(dir, "cpu.max"), []byte(fmt.Sprintf("%d 100000\n", quota)), 0644); err != nil {
		jqslog.Warnf("job %d: set cpu.max: %v", job.JobID, err)
	}
	memBytes := int64(job.MemMB) * 1024 * 1024
	if err := os.WriteFile(filepath.Join(dir, "memory.max"), []byte(fmt.Sprintf("%d\n", memBytes)), 0644); err != nil {
		jqslog.Warnf("job %d: set memory.max: %v", job.JobID, err)
	}

	outFile, err := os.Create(job.StdoutPath)
	if err != nil {
		return "", &ErrLaunchFailed{Reason: fmt.Sprintf("open stdout: %v", err)}
	}
	errFile, err := os.Create(job.StderrPath)
	if err != nil {
		outFile.Close()
		return "", &ErrLaunchFailed{Reason: fmt.Sprintf("open stderr: %v", err)}
	}

	cmd := exec.Command("/bin/sh", job.ScriptPath)
	cmd.Dir = job.Workdir
	cmd.Stdout = outFile
	cmd.Stderr = errFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		outFile.Close()
		errFile.Close()
		return "", &ErrLaunchFailed{Reason: fmt.Sprintf("start: %v", err)}
	}

	// Best-effort migration into the cgroup. The child is started outside
	// the cgroup and moved in by this write, so it briefly runs outside
	// its limits between start and migration; acceptable for a batch queue.
	pid := cmd.Process.Pid
	if err := os.WriteFile(filepath.Join(dir, "cgroup.procs"), []byte(strconv.Itoa(pid)), 0644); err != nil {
		jqslog.Warnf("job %d: migrate pid %d into cgroup: %v", job.JobID, pid, err)
	}

	go func() {
		state, _ := cmd.Process.Wait()
		outFile.Close()
		errFile.Close()
		code := -1
		if state != nil {
			code = state.ExitCode()
		}
		exitPath := filepath.Join(dir, "exitcode")
		if werr := os.WriteFile(exitPath+".tmp", []byte(strconv.Itoa(code)), 0644); werr == nil {
			os.Rename(exitPath+".tmp", exitPath)
		} else {
			jqslog.Warnf("job %d: record exit code: %v", job.JobID, werr)
		}
	}()

	return handle, nil
}

func (c *CgroupLauncher) pids(handle string) ([]int, error) {
	data, err := os.ReadFile(filepath.Join(c.dirFor(handle), "cgroup.procs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var pids []int
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Alive implements Launcher. A unit is alive if its cgroup still lists
// at least one live pid; cgroup.procs self-empties when the last
// process in the leaf exits, so no separate liveness probe is needed to
// tell "exited" from "running". The go-ps lookup skips a pid that has
// exited between reading cgroup.procs and checking it; it does not
// check which executable a live pid belongs to.
func (c *CgroupLauncher) Alive(handle string) (bool, error) {
	pids, err := c.pids(handle)
	if err != nil {
		return false, err
	}
	for _, pid := range pids {
		proc, err := ps.FindProcess(pid)
		if err == nil && proc != nil {
			return true, nil
		}
	}
	return false, nil
}

// ExitCode implements Launcher.
func (c *CgroupLauncher) ExitCode(handle string) (int, bool, error) {
	alive, err := c.Alive(handle)
	if err != nil {
		return 0, false, err
	}
	if alive {
		return 0, true, nil
	}
	data, err := os.ReadFile(filepath.Join(c.dirFor(handle), "exitcode"))
	if err != nil {
		if os.IsNotExist(err) {
			// Process is gone but no sidecar was written: either the
			// daemon that launched it never got to run its Wait
			// goroutine (restart racing completion) or recovery is
			// probing a unit it didn't start. Treat as unknown.
			return -1, false, nil
		}
		return 0, false, err
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1, false, nil
	}
	return code, false, nil
}

// Terminate implements Launcher. It signals the whole process group
// (Setpgid was set at Launch) so children spawned by the job's script
// die with it, then returns immediately; the forceful follow-up runs on
// its own goroutine so the caller never blocks for graceSec.
func (c *CgroupLauncher) Terminate(handle string, graceSec int) error {
	pids, err := c.pids(handle)
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		return nil
	}
	pgid := pids[0]
	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil && err != unix.ESRCH {
		jqslog.Warnf("terminate %s: SIGTERM pgid %d: %v", handle, pgid, err)
	}

	go func() {
		time.Sleep(time.Duration(graceSec) * time.Second)
		alive, err := c.Alive(handle)
		if err != nil || !alive {
			return
		}
		if err := unix.Kill(-pgid, unix.SIGKILL); err != nil && err != unix.ESRCH {
			jqslog.Warnf("terminate %s: SIGKILL pgid %d: %v", handle, pgid, err)
		}
	}()
	return nil
}
