package deps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/linux-deps/internal/logger"
)

// NativeModules lists the files below root whose names end with suffix, in
// lexical order. A missing root yields no files; any other failure is fatal.
func NativeModules(ctx context.Context, root, suffix string) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		logger.WarnKV(ctx, "Native modules directory not found", "dir", root)

		return nil, nil
	}

	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate native modules in %s: %w", root, err)
	}

	logger.DebugKV(ctx, "Found native modules", "dir", root, "count", len(files))

	return files, nil
}
