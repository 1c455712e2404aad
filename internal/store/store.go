package store

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"jqs/internal/fsutil"
	"jqs/internal/jobfile"
)

// ErrNotFound is returned by Find/MarkCancelRequested when no record
// with the given jobid exists in any of the three directories.
var ErrNotFound = errors.New("job not found")

// ErrAlreadyTerminal is returned by MarkCancelRequested when the job is
// already in finished/ (spec §4.5).
var ErrAlreadyTerminal = errors.New("job already terminal")

// NewJobID returns the next monotonically increasing job id, persisting
// the updated counter under jobid.lock (spec §4.1, §4.5).
func (s *Store) NewJobID() (int, error) {
	lock := s.JobIDLock()
	if err := lock.Lock(); err != nil {
		return 0, err
	}
	defer lock.Unlock()

	cur := 0
	data, err := os.ReadFile(s.JobIDCounterPath())
	if err != nil && !os.IsNotExist(err) {
		return 0, errors.Wrap(err, "read jobid_counter")
	}
	if err == nil {
		cur, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return 0, errors.Wrap(err, "parse jobid_counter")
		}
	}

	next := cur + 1
	if err := fsutil.WriteFileAtomic(s.JobIDCounterPath(), []byte(strconv.Itoa(next))); err != nil {
		return 0, err
	}
	return next, nil
}

// Enqueue writes j into queue/ via temp+rename (spec §4.5).
func (s *Store) Enqueue(j *jobfile.Job) error {
	j.State = jobfile.Queued
	return jobfile.WriteAtomic(s.recordPath(s.QueueDir(), j.JobID), j)
}

// List returns every well-formed job record in dir, ordered by filename
// (zero-padded jobid, so this is submission order within the directory).
// Corrupt record files are skipped, not returned as errors; callers that
// care about quarantining a corrupt record use ListWithCorrupt.
func (s *Store) List(dir string) ([]*jobfile.Job, error) {
	jobs, _, err := s.ListWithCorrupt(dir)
	return jobs, err
}

// Reasons recorded against a quarantined record's free-text Reason field
// (spec §4.6: "Corrupt record file → move to finished/ ... never crash
// the loop"), distinguishing why the file couldn't be trusted.
const (
	CorruptUnreadable   = "CorruptRecordUnreadable"
	CorruptParseFailed  = "CorruptRecordParseFailed"
	CorruptMissingField = "CorruptRecordMissingField"
)

// CorruptRecord names a record file ListWithCorrupt could not turn into
// a usable *jobfile.Job, and why.
type CorruptRecord struct {
	Path   string
	Reason string
}

// ListWithCorrupt is like List but also returns every record file that
// couldn't be turned into a usable job, so the caller can quarantine
// them via Quarantine.
func (s *Store) ListWithCorrupt(dir string) ([]*jobfile.Job, []CorruptRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errors.Wrapf(err, "read dir %s", dir)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".job") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var jobs []*jobfile.Job
	var corrupt []CorruptRecord
	for _, name := range names {
		p := filepath.Join(dir, name)
		data, err := os.ReadFile(p)
		if err != nil {
			corrupt = append(corrupt, CorruptRecord{Path: p, Reason: CorruptUnreadable})
			continue
		}
		j, err := jobfile.Decode(data)
		if err != nil {
			corrupt = append(corrupt, CorruptRecord{Path: p, Reason: CorruptParseFailed})
			continue
		}
		if err := jobfile.Validate(j); err != nil {
			corrupt = append(corrupt, CorruptRecord{Path: p, Reason: CorruptMissingField})
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, corrupt, nil
}

// Quarantine moves a record named by rec into finished/ as a synthetic
// FAILED record carrying rec.Reason, then unlinks the original. The
// jobid is recovered from the zero-padded filename rather than the
// record body, since that's exactly what couldn't be trusted to decode.
func (s *Store) Quarantine(rec CorruptRecord, end int64) error {
	jobid, err := jobIDFromFileName(filepath.Base(rec.Path))
	if err != nil {
		return errors.Wrapf(err, "quarantine %s", rec.Path)
	}
	j := &jobfile.Job{
		JobID:   jobid,
		State:   jobfile.Failed,
		EndTime: &end,
		Reason:  rec.Reason,
	}
	if err := jobfile.WriteAtomic(s.recordPath(s.FinishedDir(), jobid), j); err != nil {
		return err
	}
	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", rec.Path)
	}
	return nil
}

func jobIDFromFileName(name string) (int, error) {
	name = strings.TrimSuffix(name, ".job")
	jobid, err := strconv.Atoi(name)
	if err != nil {
		return 0, errors.Errorf("cannot recover jobid from filename %q", name)
	}
	return jobid, nil
}

// Move loads the record for jobid from fromDir, applies mutate, writes
// it into toDir, then unlinks the source (spec §4.5). The two-directory
// write is not atomic across a crash; RecoverStartup restores the
// invariant on the next scheduler start.
func (s *Store) Move(jobid int, fromDir, toDir string, mutate func(*jobfile.Job) *jobfile.Job) error {
	fromPath := s.recordPath(fromDir, jobid)
	data, err := os.ReadFile(fromPath)
	if err != nil {
		return errors.Wrapf(err, "read %s", fromPath)
	}
	j, err := jobfile.Decode(data)
	if err != nil {
		return errors.Wrapf(err, "decode %s", fromPath)
	}

	j = mutate(j)

	toPath := s.recordPath(toDir, jobid)
	if err := jobfile.WriteAtomic(toPath, j); err != nil {
		return err
	}
	if err := os.Remove(fromPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", fromPath)
	}
	return nil
}

// Rewrite overwrites the record for jobid in place within dir (the
// directory does not change), applying mutate. Used for in-place field
// updates such as recording a supervisor_handle after launch or setting
// cancel_requested (spec §4.5, §4.6).
func (s *Store) Rewrite(jobid int, dir string, mutate func(*jobfile.Job) *jobfile.Job) error {
	path := s.recordPath(dir, jobid)
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	j, err := jobfile.Decode(data)
	if err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	j = mutate(j)
	return jobfile.WriteAtomic(path, j)
}

// Find scans running/, queue/, finished/ in that order for jobid (spec
// §4.5: running jobs are the ones most likely to be queried via
// `info`/`cancel`, so they're checked first).
func (s *Store) Find(jobid int) (dir string, job *jobfile.Job, err error) {
	for _, d := range []string{s.RunningDir(), s.QueueDir(), s.FinishedDir()} {
		p := s.recordPath(d, jobid)
		data, rerr := os.ReadFile(p)
		if rerr != nil {
			if os.IsNotExist(rerr) {
				continue
			}
			return "", nil, errors.Wrapf(rerr, "read %s", p)
		}
		j, derr := jobfile.Decode(data)
		if derr != nil {
			return "", nil, errors.Wrapf(derr, "decode %s", p)
		}
		return d, j, nil
	}
	return "", nil, ErrNotFound
}

// MarkCancelRequested sets cancel_requested=true on the record for jobid,
// wherever it currently lives. Returns ErrAlreadyTerminal if the job is
// already in finished/, ErrNotFound if it does not exist at all.
func (s *Store) MarkCancelRequested(jobid int) error {
	dir, _, err := s.Find(jobid)
	if err != nil {
		return err
	}
	if dir == s.FinishedDir() {
		return ErrAlreadyTerminal
	}
	return s.Rewrite(jobid, dir, func(j *jobfile.Job) *jobfile.Job {
		j.CancelRequested = true
		return j
	})
}

// RecoverStartup restores the filesystem invariants after an unclean
// shutdown (spec §9): delete stale temp files (any name containing
// ".tmp") in every job directory, and if a record for the same jobid
// exists in two directories at once (a Move that wrote the destination
// but crashed before unlinking the source), the destination wins and the
// source copy is removed. Directory precedence when resolving a duplicate
// is finished > running > queue, mirroring the forward direction jobs
// move in (a record never moves back out of finished/ or running/ into
// an earlier directory).
func (s *Store) RecoverStartup() error {
	dirs := []string{s.QueueDir(), s.RunningDir(), s.FinishedDir()}
	for _, d := range dirs {
		if err := fsutil.RemoveStaleTemp(d); err != nil {
			return err
		}
	}

	seen := map[int]string{} // jobid -> authoritative dir
	precedence := []string{s.FinishedDir(), s.RunningDir(), s.QueueDir()}

	present := map[int]map[string]bool{}
	for _, d := range dirs {
		jobs, _, err := s.ListWithCorrupt(d)
		if err != nil {
			return err
		}
		for _, j := range jobs {
			if present[j.JobID] == nil {
				present[j.JobID] = map[string]bool{}
			}
			present[j.JobID][d] = true
		}
	}

	for jobid, dirsHoldingIt := range present {
		if len(dirsHoldingIt) <= 1 {
			continue
		}
		var authoritative string
		for _, d := range precedence {
			if dirsHoldingIt[d] {
				authoritative = d
				break
			}
		}
		seen[jobid] = authoritative
		for _, d := range dirs {
			if d == authoritative || !dirsHoldingIt[d] {
				continue
			}
			if err := os.Remove(s.recordPath(d, jobid)); err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, "remove duplicate record %d from %s", jobid, d)
			}
		}
	}
	return nil
}
