package reconcile

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/renameio"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/linux-deps/internal/baseline"
	"github.com/oshokin/linux-deps/internal/deps"
	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/platform"
	"github.com/oshokin/linux-deps/internal/service/common"
	"github.com/oshokin/linux-deps/internal/shell"
)

// reportFileMode is applied to the YAML report.
const reportFileMode os.FileMode = 0o644

// Options contains inputs for the deps-checker entry point.
type Options struct {
	// ConfigPath is an optional YAML settings file.
	ConfigPath string
	// Flags are the parsed command-line flags; explicitly set ones override the settings file.
	Flags *pflag.FlagSet
	// PackageType is "deb" or "rpm".
	PackageType string
	// BuildDir is the root of the built application.
	BuildDir string
	// ApplicationName names the main executable.
	ApplicationName string
	// Arch is an architecture token valid for PackageType.
	Arch string
	// OutputPath, when set, receives a YAML report instead of stdout.
	OutputPath string
	// Stdout receives the list. Defaults to os.Stdout.
	Stdout io.Writer
	// Runner executes the extraction tools. Defaults to shell.Exec.
	Runner shell.Runner
}

// Report is the YAML document written to OutputPath.
type Report struct {
	PackageType  platform.PackageType `yaml:"package_type"`
	Arch         string               `yaml:"arch"`
	Dependencies []string             `yaml:"dependencies"`
}

// runner holds the collaborators of a single deps-checker run.
// It is unexported; callers should use Run.
type runner struct {
	opts       *Options
	reconciler *deps.Reconciler
}

// Run computes and checks the dependency list of one build.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "deps-checker")

	pt, err := platform.ParsePackageType(opts.PackageType)
	if err != nil {
		return err
	}

	if _, err = pt.ValidateArch(opts.Arch); err != nil {
		return err
	}

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	list, err := r.reconciler.Reconcile(ctx, deps.Request{
		PackageType:     pt,
		BuildDir:        opts.BuildDir,
		ApplicationName: opts.ApplicationName,
		Arch:            opts.Arch,
	})
	if err != nil {
		return fmt.Errorf("reconcile %s dependencies: %w", pt, err)
	}

	return r.write(ctx, Report{
		PackageType:  pt,
		Arch:         opts.Arch,
		Dependencies: list,
	})
}

func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	rt, err := common.Setup(ctx, opts.ConfigPath, opts.Flags)
	if err != nil {
		return nil, err
	}

	table, err := baseline.Load(rt.Config.Deps.BaselineFile)
	if err != nil {
		return nil, err
	}

	tools := opts.Runner
	if tools == nil {
		tools = shell.Exec{}
	}

	debian := rt.Config.Deps.Debian
	extractors := map[platform.PackageType]deps.Extractor{
		platform.Debian: deps.NewDebianExtractor(tools, debian,
			deps.NewScriptInstaller(rt.Client, debian.ScriptURL, debian.ScriptSHA256)),
		platform.RPM: deps.NewRPMExtractor(tools, rt.Config.Deps.RPM),
	}

	return &runner{
		opts:       opts,
		reconciler: deps.New(rt.Config.Deps, rt.Provisioner(), table, extractors),
	}, nil
}

// write prints the list or stores the YAML report.
func (r *runner) write(ctx context.Context, report Report) error {
	if r.opts.OutputPath == "" {
		stdout := r.opts.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}

		var b strings.Builder
		for _, dep := range report.Dependencies {
			b.WriteString(dep)
			b.WriteByte('\n')
		}

		_, err := io.WriteString(stdout, b.String())

		return err
	}

	contents, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	if err = renameio.WriteFile(r.opts.OutputPath, contents, reportFileMode); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.InfoKV(ctx, "Report written", "path", r.opts.OutputPath, "count", len(report.Dependencies))

	return nil
}
