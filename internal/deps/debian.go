package deps

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/oshokin/linux-deps/internal/config"
	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/platform"
	"github.com/oshokin/linux-deps/internal/shell"
)

// shlibsDependsPrefix starts the dpkg-shlibdeps output line listing dependencies.
const shlibsDependsPrefix = "shlibs:Depends="

// DebianExtractor runs dpkg-shlibdeps inside a sysroot.
type DebianExtractor struct {
	runner    shell.Runner
	cfg       config.DebianToolConfig
	installer *ScriptInstaller
}

// NewDebianExtractor creates a DebianExtractor. When installer is not nil the
// script is fetched before the first scan if it is missing.
func NewDebianExtractor(runner shell.Runner, cfg config.DebianToolConfig, installer *ScriptInstaller) *DebianExtractor {
	return &DebianExtractor{
		runner:    runner,
		cfg:       cfg,
		installer: installer,
	}
}

// Extract implements Extractor. The configured extra dependencies are
// appended as one more set.
func (e *DebianExtractor) Extract(ctx context.Context, files []string, arch platform.Arch, sysroot string) ([]Set, error) {
	triple, ok := arch.LibraryTriple()
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a Debian architecture", platform.ErrInvalidArch, arch)
	}

	script, err := filepath.Abs(e.cfg.Script)
	if err != nil {
		return nil, err
	}

	if e.installer != nil {
		if err = e.installer.Ensure(ctx, script); err != nil {
			return nil, err
		}
	}

	args := []string{
		script,
		"--ignore-weak-undefined",
		"-l" + filepath.Join(sysroot, "usr", "lib", triple),
		"-l" + filepath.Join(sysroot, "lib", triple),
		"-l" + filepath.Join(sysroot, "usr", "lib"),
	}

	if e.cfg.LocalShlibs != "" {
		args = append(args, "-L"+e.cfg.LocalShlibs)
	}

	args = append(args, "-O", "-e")

	results := make([]Set, 0, len(files)+1)

	for _, file := range files {
		path, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}

		warnIfNotExecutable(ctx, path)

		output, err := e.runner.Run(ctx, shell.Command{
			Name: e.cfg.Perl,
			Args: append(slices.Clone(args), path),
			Dir:  sysroot,
		})
		if err != nil {
			return nil, fmt.Errorf("dpkg-shlibdeps %s: %w", path, err)
		}

		requires := ParseShlibsDepends(string(output))
		logger.DebugKV(ctx, "Scanned file", "path", path, "requires", len(requires))

		results = append(results, requires)
	}

	return append(results, NewSet(e.cfg.ExtraDepends...)), nil
}

// ParseShlibsDepends extracts the dependencies from dpkg-shlibdeps output.
// The last shlibs:Depends line wins.
func ParseShlibsDepends(output string) Set {
	var depends string

	for line := range strings.Lines(output) {
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, shlibsDependsPrefix) {
			depends = strings.TrimPrefix(line, shlibsDependsPrefix)
		}
	}

	return NewSet(strings.Split(depends, ", ")...)
}
