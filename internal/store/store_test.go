package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"jqs/internal/jobfile"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	require.NoError(t, s.EnsureLayout())
	return s
}

func TestNewJobIDMonotonic(t *testing.T) {
	s := newTestStore(t)
	id1, err := s.NewJobID()
	require.NoError(t, err)
	id2, err := s.NewJobID()
	require.NoError(t, err)
	require.Equal(t, id1+1, id2)
}

func TestEnqueueAndList(t *testing.T) {
	s := newTestStore(t)
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Enqueue(&jobfile.Job{JobID: i, Name: "j", ScriptPath: "/a", Workdir: "/b", Cores: 1, MemMB: 1}))
	}
	jobs, err := s.List(s.QueueDir())
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	require.Equal(t, 1, jobs[0].JobID)
	require.Equal(t, 2, jobs[1].JobID)
	require.Equal(t, 3, jobs[2].JobID)
}

func TestListWithCorruptDistinguishesReasons(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Enqueue(&jobfile.Job{JobID: 1, Name: "j", ScriptPath: "/a", Workdir: "/b", Cores: 1, MemMB: 1}))
	require.NoError(t, os.WriteFile(filepath.Join(s.QueueDir(), "0000000002.job"), []byte("not-a-kv-line\n"), 0644))
	require.NoError(t, jobfile.WriteAtomic(filepath.Join(s.QueueDir(), "0000000003.job"), &jobfile.Job{JobID: 3}))

	jobs, corrupt, err := s.ListWithCorrupt(s.QueueDir())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Len(t, corrupt, 2)
	require.Equal(t, CorruptParseFailed, corrupt[0].Reason)
	require.Equal(t, CorruptMissingField, corrupt[1].Reason)
}

func TestQuarantineMovesCorruptRecordToFinished(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.QueueDir(), "0000000002.job"), []byte("garbage\n"), 0644))

	_, corrupt, err := s.ListWithCorrupt(s.QueueDir())
	require.NoError(t, err)
	require.Len(t, corrupt, 1)

	require.NoError(t, s.Quarantine(corrupt[0], 1000))

	_, err = os.Stat(filepath.Join(s.QueueDir(), "0000000002.job"))
	require.True(t, os.IsNotExist(err))

	dir, j, err := s.Find(2)
	require.NoError(t, err)
	require.Equal(t, s.FinishedDir(), dir)
	require.Equal(t, jobfile.Failed, j.State)
	require.Equal(t, CorruptParseFailed, j.Reason)
}

func TestMoveTransitionsDirectory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Enqueue(&jobfile.Job{JobID: 1, Name: "j", ScriptPath: "/a", Workdir: "/b", Cores: 1, MemMB: 1}))

	require.NoError(t, s.Move(1, s.QueueDir(), s.RunningDir(), func(j *jobfile.Job) *jobfile.Job {
		j.State = jobfile.Running
		return j
	}))

	_, err := os.Stat(filepath.Join(s.QueueDir(), "0000000001.job"))
	require.True(t, os.IsNotExist(err))

	dir, j, err := s.Find(1)
	require.NoError(t, err)
	require.Equal(t, s.RunningDir(), dir)
	require.Equal(t, jobfile.Running, j.State)
}

func TestFindNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Find(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkCancelRequestedAlreadyTerminal(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Enqueue(&jobfile.Job{JobID: 1, Name: "j", ScriptPath: "/a", Workdir: "/b", Cores: 1, MemMB: 1}))
	require.NoError(t, s.Move(1, s.QueueDir(), s.FinishedDir(), func(j *jobfile.Job) *jobfile.Job {
		j.State = jobfile.Finished
		return j
	}))

	err := s.MarkCancelRequested(1)
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestMarkCancelRequestedSetsFlag(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Enqueue(&jobfile.Job{JobID: 1, Name: "j", ScriptPath: "/a", Workdir: "/b", Cores: 1, MemMB: 1}))
	require.NoError(t, s.MarkCancelRequested(1))

	_, j, err := s.Find(1)
	require.NoError(t, err)
	require.True(t, j.CancelRequested)
}

func TestRecoverStartupRemovesStaleTempAndDuplicates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.QueueDir(), "0000000001.job.tmp-xyz"), []byte("x"), 0644))

	j := &jobfile.Job{JobID: 2, Name: "j", ScriptPath: "/a", Workdir: "/b", Cores: 1, MemMB: 1, State: jobfile.Queued}
	require.NoError(t, jobfile.WriteAtomic(filepath.Join(s.QueueDir(), "0000000002.job"), j))
	j.State = jobfile.Running
	require.NoError(t, jobfile.WriteAtomic(filepath.Join(s.RunningDir(), "0000000002.job"), j))

	require.NoError(t, s.RecoverStartup())

	_, err := os.Stat(filepath.Join(s.QueueDir(), "0000000001.job.tmp-xyz"))
	require.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(s.QueueDir(), "0000000002.job"))
	require.True(t, os.IsNotExist(err), "running/ takes precedence over queue/ for a duplicate record")

	_, err = os.Stat(filepath.Join(s.RunningDir(), "0000000002.job"))
	require.NoError(t, err)
}
