package deps

import (
	"context"
	"os"

	"github.com/oshokin/linux-deps/internal/logger"
)

// userExecute is the owner execute permission bit.
const userExecute os.FileMode = 0o100

// warnIfNotExecutable logs files the tools are likely to reject. Scanning
// continues either way and the tool reports the real failure.
func warnIfNotExecutable(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to stat file", "path", path, "error", err)

		return
	}

	if info.Mode().Perm()&userExecute == 0 {
		logger.ErrorKV(ctx, "File needs to have an executable bit set", "path", path)
	}
}
