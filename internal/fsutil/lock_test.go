package fsutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileLockExclusion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.lock")

	l1 := NewFileLock(path)
	require.NoError(t, l1.Lock())

	unlocked := make(chan struct{})
	go func() {
		l2 := NewFileLock(path)
		require.NoError(t, l2.Lock())
		close(unlocked)
		require.NoError(t, l2.Unlock())
	}()

	select {
	case <-unlocked:
		t.Fatal("second lock acquired while first still held")
	default:
	}

	require.NoError(t, l1.Unlock())
	select {
	case <-unlocked:
	case <-time.After(2 * time.Second):
		t.Fatal("second lock never acquired after first was released")
	}
}

func TestFileLockReentrantSequential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobid.lock")
	l := NewFileLock(path)
	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
	require.NoError(t, l.Lock())
	require.NoError(t, l.Unlock())
}
