package deps

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oshokin/linux-deps/internal/config"
	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/platform"
	"github.com/oshokin/linux-deps/internal/shell"
)

// RPMExtractor runs find-requires on the host.
type RPMExtractor struct {
	runner shell.Runner
	cfg    config.RPMToolConfig
}

// NewRPMExtractor creates an RPMExtractor.
func NewRPMExtractor(runner shell.Runner, cfg config.RPMToolConfig) *RPMExtractor {
	return &RPMExtractor{
		runner: runner,
		cfg:    cfg,
	}
}

// Extract implements Extractor. find-requires reads the path from stdin and
// prints one requirement per line. arch and sysroot are not used.
func (e *RPMExtractor) Extract(ctx context.Context, files []string, _ platform.Arch, _ string) ([]Set, error) {
	results := make([]Set, 0, len(files)+1)

	for _, file := range files {
		path, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}

		warnIfNotExecutable(ctx, path)

		output, err := e.runner.Run(ctx, shell.Command{
			Name:  e.cfg.FindRequires,
			Stdin: path + "\n",
		})
		if err != nil {
			return nil, fmt.Errorf("find-requires %s: %w", path, err)
		}

		requires := NewSet(strings.Split(strings.TrimRight(string(output), "\n"), "\n")...)
		logger.DebugKV(ctx, "Scanned file", "path", path, "requires", len(requires))

		results = append(results, requires)
	}

	return append(results, NewSet(e.cfg.ExtraDepends...)), nil
}
