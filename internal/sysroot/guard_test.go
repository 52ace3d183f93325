package sysroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateComm(t *testing.T) {
	t.Parallel()

	require.Equal(t, "sysroot-install", truncateComm("sysroot-installer"))
	require.Equal(t, "deps", truncateComm("deps"))
}

func TestConcurrentInstances_ExcludesSelf(t *testing.T) {
	t.Parallel()

	pids, err := concurrentInstances(filepath.Base(os.Args[0]), os.Getpid())
	if err != nil {
		t.Skipf("process listing unavailable: %v", err)
	}

	require.NotContains(t, pids, os.Getpid())
}
