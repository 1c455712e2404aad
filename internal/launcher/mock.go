package launcher

import (
	"fmt"
	"sync"

	"jqs/internal/jobfile"
)

// Mock is an in-memory Launcher for unit tests, standing in for the
// real cgroup/process mechanism the way spec §4.7/§9 invite. Each
// launched job is tracked as "running" until the test calls Finish to
// simulate its completion.
type Mock struct {
	mu       sync.Mutex
	running  map[string]bool
	exit     map[string]int
	launched map[string]*jobfile.Job
	FailNext bool
}

// NewMock returns an empty Mock launcher.
func NewMock() *Mock {
	return &Mock{
		running:  map[string]bool{},
		exit:     map[string]int{},
		launched: map[string]*jobfile.Job{},
	}
}

func (m *Mock) Launch(job *jobfile.Job) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return "", &ErrLaunchFailed{Reason: "mock forced failure"}
	}
	handle := fmt.Sprintf("mock-job-%010d", job.JobID)
	m.running[handle] = true
	m.launched[handle] = job
	return handle, nil
}

func (m *Mock) Alive(handle string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running[handle], nil
}

func (m *Mock) ExitCode(handle string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[handle] {
		return 0, true, nil
	}
	code, ok := m.exit[handle]
	if !ok {
		return -1, false, nil
	}
	return code, false, nil
}

func (m *Mock) Terminate(handle string, graceSec int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[handle] = false
	if _, ok := m.exit[handle]; !ok {
		m.exit[handle] = 143 // SIGTERM
	}
	return nil
}

// Finish simulates the unit exiting on its own with code, for tests
// that drive the scheduler through a full run-to-completion cycle.
func (m *Mock) Finish(handle string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[handle] = false
	m.exit[handle] = code
}
