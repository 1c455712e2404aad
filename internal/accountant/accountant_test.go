package accountant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitLimitsDoesNotOverwrite(t *testing.T) {
	root := t.TempDir()
	a := New(root)
	require.NoError(t, a.InitLimits(Limits{CoresTotal: 8, MemMBTotal: 16384}))
	require.NoError(t, a.InitLimits(Limits{CoresTotal: 999, MemMBTotal: 999}))
	require.Equal(t, 8, a.Limits.CoresTotal)
}

func TestReloadPicksUpUsageWrites(t *testing.T) {
	root := t.TempDir()
	a := New(root)
	require.NoError(t, a.InitLimits(Limits{CoresTotal: 4, MemMBTotal: 4096}))
	require.NoError(t, a.Reserve(Request{Cores: 2, MemMB: 1024}))

	b := New(root)
	require.NoError(t, b.Reload())
	require.Equal(t, 2, b.Usage.CoresUsed)
	require.Equal(t, 1024, b.Usage.MemMBUsed)
	require.Equal(t, 4, b.Limits.CoresTotal)
}

func TestOversized(t *testing.T) {
	a := New(t.TempDir())
	a.Limits = Limits{CoresTotal: 4, MemMBTotal: 4096}
	require.True(t, a.Oversized(Request{Cores: 5, MemMB: 1}))
	require.True(t, a.Oversized(Request{Cores: 1, MemMB: 5000}))
	require.False(t, a.Oversized(Request{Cores: 4, MemMB: 4096}))
}

func TestFitsExactBoundary(t *testing.T) {
	a := New(t.TempDir())
	a.Limits = Limits{CoresTotal: 8, MemMBTotal: 16384}
	a.Usage = Usage{CoresUsed: 6, MemMBUsed: 0}
	require.True(t, a.Fits(Request{Cores: 2, MemMB: 100}))
	require.False(t, a.Fits(Request{Cores: 3, MemMB: 100}))
}

func TestReserveAndRelease(t *testing.T) {
	root := t.TempDir()
	a := New(root)
	require.NoError(t, a.InitLimits(Limits{CoresTotal: 8, MemMBTotal: 16384}))
	require.NoError(t, a.Reserve(Request{Cores: 3, MemMB: 2048}))
	require.Equal(t, 3, a.Usage.CoresUsed)
	require.NoError(t, a.Release(Request{Cores: 3, MemMB: 2048}))
	require.Equal(t, 0, a.Usage.CoresUsed)
	require.Equal(t, 0, a.Usage.MemMBUsed)
}

func TestReleaseSaturatesAtZero(t *testing.T) {
	root := t.TempDir()
	a := New(root)
	require.NoError(t, a.InitLimits(Limits{CoresTotal: 8, MemMBTotal: 16384}))
	require.NoError(t, a.Release(Request{Cores: 5, MemMB: 5000}))
	require.Equal(t, 0, a.Usage.CoresUsed)
	require.Equal(t, 0, a.Usage.MemMBUsed)
}
