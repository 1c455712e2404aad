// Package jobfile defines the on-disk job record (spec §3) and its
// key=value text codec (spec §4.3, §6): one `key=value` per line,
// strings quoted, optional fields allowed to be `null`, written via
// write-temp-then-rename so a reader never observes a torn file.
package jobfile

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"jqs/internal/fsutil"
)

// State is the job lifecycle state (spec §3 invariant 2).
type State string

const (
	Queued    State = "QUEUED"
	Running   State = "RUNNING"
	Finished  State = "FINISHED"
	Cancelled State = "CANCELLED"
	Failed    State = "FAILED"
)

// Job is the full decoded job record.
type Job struct {
	JobID            int
	Name             string
	ScriptPath       string
	Workdir          string
	Cores            int
	MemMB            int
	StdoutPath       string
	StderrPath       string
	TimeLimitSec     *int
	State            State
	SubmitTime       *int64
	StartTime        *int64
	EndTime          *int64
	SupervisorHandle *string
	ExitCode         *int
	CancelRequested  bool
	Reason           string // free-text failure/cancel reason, e.g. "OversizedRequest"
}

// Encode renders j as key=value lines in a stable field order.
func Encode(j *Job) []byte {
	var b strings.Builder
	writeInt(&b, "jobid", j.JobID)
	writeStr(&b, "name", j.Name)
	writeStr(&b, "script_path", j.ScriptPath)
	writeStr(&b, "workdir", j.Workdir)
	writeInt(&b, "cores", j.Cores)
	writeInt(&b, "mem_mb", j.MemMB)
	writeStr(&b, "stdout_path", j.StdoutPath)
	writeStr(&b, "stderr_path", j.StderrPath)
	writeIntPtr(&b, "time_limit_sec", j.TimeLimitSec)
	writeStr(&b, "state", string(j.State))
	writeInt64Ptr(&b, "submit_time", j.SubmitTime)
	writeInt64Ptr(&b, "start_time", j.StartTime)
	writeInt64Ptr(&b, "end_time", j.EndTime)
	writeStrPtr(&b, "supervisor_handle", j.SupervisorHandle)
	writeIntPtr(&b, "exit_code", j.ExitCode)
	writeBool(&b, "cancel_requested", j.CancelRequested)
	writeStr(&b, "reason", j.Reason)
	return []byte(b.String())
}

// Decode parses key=value lines into a Job. Unknown keys are ignored for
// forward compatibility; blank lines and lines starting with '#' are
// skipped.
func Decode(data []byte) (*Job, error) {
	j := &Job{}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			return nil, errors.Errorf("malformed line %d: %q", lineNo, line)
		}
		key := line[:eq]
		val := line[eq+1:]

		var err error
		switch key {
		case "jobid":
			j.JobID, err = strconv.Atoi(val)
		case "name":
			j.Name, err = unquote(val)
		case "script_path":
			j.ScriptPath, err = unquote(val)
		case "workdir":
			j.Workdir, err = unquote(val)
		case "cores":
			j.Cores, err = strconv.Atoi(val)
		case "mem_mb":
			j.MemMB, err = strconv.Atoi(val)
		case "stdout_path":
			j.StdoutPath, err = unquote(val)
		case "stderr_path":
			j.StderrPath, err = unquote(val)
		case "time_limit_sec":
			j.TimeLimitSec, err = parseIntPtr(val)
		case "state":
			var s string
			s, err = unquote(val)
			j.State = State(s)
		case "submit_time":
			j.SubmitTime, err = parseInt64Ptr(val)
		case "start_time":
			j.StartTime, err = parseInt64Ptr(val)
		case "end_time":
			j.EndTime, err = parseInt64Ptr(val)
		case "supervisor_handle":
			j.SupervisorHandle, err = parseStrPtr(val)
		case "exit_code":
			j.ExitCode, err = parseIntPtr(val)
		case "cancel_requested":
			j.CancelRequested, err = strconv.ParseBool(val)
		case "reason":
			j.Reason, err = unquote(val)
		default:
			// unknown key, ignored
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d (%s)", lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return j, nil
}

// WriteAtomic encodes j and writes it to path via write-temp-then-rename.
func WriteAtomic(path string, j *Job) error {
	return fsutil.WriteFileAtomic(path, Encode(j))
}

// Validate reports whether j has every field a record needs to be
// scheduled or reported on. A record can decode cleanly (every
// key=value line well-formed) and still be unusable, e.g. a truncated
// write that dropped the trailing fields — Decode has no way to tell
// "zero" from "missing" on its own.
func Validate(j *Job) error {
	switch {
	case j.JobID <= 0:
		return errors.New("missing or non-positive jobid")
	case j.ScriptPath == "":
		return errors.New("missing script_path")
	case j.Workdir == "":
		return errors.New("missing workdir")
	case j.Cores <= 0:
		return errors.New("missing or non-positive cores")
	case j.MemMB <= 0:
		return errors.New("missing or non-positive mem_mb")
	case j.State == "":
		return errors.New("missing state")
	}
	return nil
}

// --- field writers ---

func writeStr(b *strings.Builder, key, val string) {
	fmt.Fprintf(b, "%s=%q\n", key, val)
}

func writeStrPtr(b *strings.Builder, key string, val *string) {
	if val == nil {
		fmt.Fprintf(b, "%s=null\n", key)
		return
	}
	writeStr(b, key, *val)
}

func writeInt(b *strings.Builder, key string, val int) {
	fmt.Fprintf(b, "%s=%d\n", key, val)
}

func writeIntPtr(b *strings.Builder, key string, val *int) {
	if val == nil {
		fmt.Fprintf(b, "%s=null\n", key)
		return
	}
	writeInt(b, key, *val)
}

func writeInt64Ptr(b *strings.Builder, key string, val *int64) {
	if val == nil {
		fmt.Fprintf(b, "%s=null\n", key)
		return
	}
	fmt.Fprintf(b, "%s=%d\n", key, *val)
}

func writeBool(b *strings.Builder, key string, val bool) {
	fmt.Fprintf(b, "%s=%t\n", key, val)
}

// --- field parsers ---

func unquote(s string) (string, error) {
	if s == "null" {
		return "", nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", errors.Errorf("expected quoted string, got %q", s)
	}
	return strconv.Unquote(s)
}

func parseStrPtr(s string) (*string, error) {
	if s == "null" {
		return nil, nil
	}
	v, err := unquote(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseIntPtr(s string) (*int, error) {
	if s == "null" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseInt64Ptr(s string) (*int64, error) {
	if s == "null" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
