package provision

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/platform"
	"github.com/oshokin/linux-deps/internal/service/common"
	"github.com/oshokin/linux-deps/internal/sysroot"
)

// Options contains inputs for the sysroot-installer entry point.
type Options struct {
	// ConfigPath is an optional YAML settings file.
	ConfigPath string
	// Flags are the parsed command-line flags; explicitly set ones override the settings file.
	Flags *pflag.FlagSet
	// Kind is "toolchain" or "vendor".
	Kind string
	// Arch is a Debian architecture token.
	Arch string
	// Stdout receives the sysroot path. Defaults to os.Stdout.
	Stdout io.Writer
}

// Run acquires the requested sysroot.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "sysroot-installer")

	kind, err := sysroot.ParseKind(opts.Kind)
	if err != nil {
		return err
	}

	arch, err := platform.Debian.ValidateArch(opts.Arch)
	if err != nil {
		return err
	}

	rt, err := common.Setup(ctx, opts.ConfigPath, opts.Flags)
	if err != nil {
		return err
	}

	path, err := rt.Provisioner().Acquire(ctx, kind, arch)
	if err != nil {
		return fmt.Errorf("acquire %s sysroot for %s: %w", kind, arch, err)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	_, err = fmt.Fprintln(stdout, path)

	return err
}
