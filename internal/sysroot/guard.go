package sysroot

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/linux-deps/internal/logger"
)

// commLength is how much of an executable name the kernel keeps per process.
const commLength = 15

// warnConcurrentInstances logs when another copy of this executable is running.
// Cache directories are not locked, so a parallel run may read a tree that is
// about to be deleted.
func warnConcurrentInstances(ctx context.Context) {
	others, err := concurrentInstances(filepath.Base(os.Args[0]), os.Getpid())
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)

		return
	}

	if len(others) > 0 {
		logger.WarnKV(ctx, "Another instance is running, cache directories are not locked", "pids", others)
	}
}

// concurrentInstances returns the PIDs of other processes named like executable.
func concurrentInstances(executable string, self int) ([]int, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	want := truncateComm(executable)

	var pids []int

	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		if truncateComm(process.Executable()) == want {
			pids = append(pids, process.Pid())
		}
	}

	return pids, nil
}

func truncateComm(name string) string {
	if len(name) > commLength {
		return name[:commLength]
	}

	return name
}
