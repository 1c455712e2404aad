package sysinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumCoresMatchesRuntime(t *testing.T) {
	require.Equal(t, runtime.NumCPU(), NumCores())
}

func TestCharsToString(t *testing.T) {
	buf := make([]byte, 8)
	copy(buf, "abc")
	require.Equal(t, "abc", charsToString(buf))
}

func TestTotalMemMB(t *testing.T) {
	mb, err := TotalMemMB()
	require.NoError(t, err)
	require.Greater(t, mb, 0)
}
