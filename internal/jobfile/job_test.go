package jobfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleJob() *Job {
	submit := int64(1000)
	start := int64(1001)
	limit := 30
	exit := 0
	handle := "job-0000000001"
	return &Job{
		JobID:            1,
		Name:             "demo",
		ScriptPath:       "/tmp/job.sh",
		Workdir:          "/tmp",
		Cores:            2,
		MemMB:            1024,
		StdoutPath:       "/tmp/job.out",
		StderrPath:       "/tmp/job.err",
		TimeLimitSec:     &limit,
		State:            Running,
		SubmitTime:       &submit,
		StartTime:        &start,
		EndTime:          nil,
		SupervisorHandle: &handle,
		ExitCode:         &exit,
		CancelRequested:  false,
		Reason:           "",
	}
}

// TestRoundTrip covers invariant I5: encode then decode must reproduce
// the original record field for field.
func TestRoundTrip(t *testing.T) {
	j := sampleJob()
	decoded, err := Decode(Encode(j))
	require.NoError(t, err)
	require.Equal(t, j, decoded)
}

func TestRoundTripAllNilOptional(t *testing.T) {
	j := &Job{JobID: 2, Name: "x", ScriptPath: "/a", Workdir: "/b", Cores: 1, MemMB: 512, State: Queued}
	decoded, err := Decode(Encode(j))
	require.NoError(t, err)
	require.Equal(t, j, decoded)
}

func TestDecodeIgnoresUnknownKeysAndComments(t *testing.T) {
	data := []byte("# a comment\n\njobid=5\nname=\"x\"\nscript_path=\"/a\"\nworkdir=\"/b\"\ncores=1\nmem_mb=512\nstdout_path=\"/a.out\"\nstderr_path=\"/a.err\"\ntime_limit_sec=null\nstate=\"QUEUED\"\nsubmit_time=null\nstart_time=null\nend_time=null\nsupervisor_handle=null\nexit_code=null\ncancel_requested=false\nreason=\"\"\nfuture_field=\"ignored\"\n")
	j, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, 5, j.JobID)
	require.Equal(t, Queued, j.State)
}

func TestDecodeMalformedLine(t *testing.T) {
	_, err := Decode([]byte("not-a-kv-line\n"))
	require.Error(t, err)
}

func TestWriteAtomicThenDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0000000001.job")
	j := sampleJob()
	require.NoError(t, WriteAtomic(path, j))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, j, decoded)
}
