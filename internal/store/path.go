// Package store implements the on-disk path layout, the two advisory
// file locks, and the job state machine moves between queue/, running/,
// and finished/ (spec §3, §4.1, §4.5).
//
// Per spec §9's design note, there is no package-level mutable state
// here: every operation is a method on an explicit *Store value, so the
// submission CLI, the scheduler, and the inspection commands can each
// hold their own Store pointed at the same root without sharing process
// memory.
package store

import (
	"fmt"
	"path/filepath"

	"jqs/internal/fsutil"
)

// Store is a handle on the filesystem-rooted job queue state at Root.
type Store struct {
	Root string
}

// New returns a Store rooted at root. It does not touch the filesystem.
func New(root string) *Store {
	return &Store{Root: root}
}

func (s *Store) QueueDir() string    { return filepath.Join(s.Root, "queue") }
func (s *Store) RunningDir() string  { return filepath.Join(s.Root, "running") }
func (s *Store) FinishedDir() string { return filepath.Join(s.Root, "finished") }
func (s *Store) LocksDir() string    { return filepath.Join(s.Root, "locks") }

func (s *Store) LimitsPath() string       { return filepath.Join(s.Root, "limits.json") }
func (s *Store) UsagePath() string        { return filepath.Join(s.Root, "usage.json") }
func (s *Store) JobIDCounterPath() string { return filepath.Join(s.Root, "jobid_counter") }
func (s *Store) SchedulerTickPath() string {
	return filepath.Join(s.LocksDir(), "scheduler.tick")
}

func (s *Store) resourcesLockPath() string { return filepath.Join(s.LocksDir(), "resources.lock") }
func (s *Store) jobIDLockPath() string     { return filepath.Join(s.LocksDir(), "jobid.lock") }

// ResourcesLock returns the (unacquired) advisory lock guarding
// usage.json and the admission critical section.
func (s *Store) ResourcesLock() *fsutil.FileLock {
	return fsutil.NewFileLock(s.resourcesLockPath())
}

// JobIDLock returns the (unacquired) advisory lock guarding
// jobid_counter.
func (s *Store) JobIDLock() *fsutil.FileLock {
	return fsutil.NewFileLock(s.jobIDLockPath())
}

// EnsureLayout creates the root directory tree if it does not exist.
func (s *Store) EnsureLayout() error {
	for _, d := range []string{s.Root, s.QueueDir(), s.RunningDir(), s.FinishedDir(), s.LocksDir()} {
		if err := fsutil.EnsureDir(d); err != nil {
			return err
		}
	}
	return nil
}

// recordFileName zero-pads jobid for lexical-order-equals-submission-order
// (spec §3: "zero-padded for lexical ordering").
func recordFileName(jobid int) string {
	return fmt.Sprintf("%010d.job", jobid)
}

func (s *Store) recordPath(dir string, jobid int) string {
	return filepath.Join(dir, recordFileName(jobid))
}
