package deps

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/oshokin/linux-deps/internal/config"
	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/platform"
	"github.com/oshokin/linux-deps/internal/sysroot"
)

// SysrootProvider materializes the sysroots Debian scans resolve against.
type SysrootProvider interface {
	Acquire(ctx context.Context, kind sysroot.Kind, arch platform.Arch) (string, error)
}

// Extractor returns one dependency set per scanned file, plus any sets it
// always contributes. sysroot is empty when the package type needs none.
type Extractor interface {
	Extract(ctx context.Context, files []string, arch platform.Arch, sysroot string) ([]Set, error)
}

// Baseline returns the reviewed list for a package type and architecture.
type Baseline interface {
	Lookup(pt platform.PackageType, arch platform.Arch) []string
}

// Request is one reconciliation.
type Request struct {
	PackageType     platform.PackageType
	BuildDir        string
	ApplicationName string
	// Arch is the raw token; it is validated against PackageType.
	Arch string
}

var errNoExtractor = errors.New("no extractor registered for package type")

// Reconciler computes and checks package dependencies.
type Reconciler struct {
	cfg        config.DepsConfig
	sysroots   SysrootProvider
	baseline   Baseline
	extractors map[platform.PackageType]Extractor
}

// New creates a Reconciler. cfg must have been validated.
func New(
	cfg config.DepsConfig,
	sysroots SysrootProvider,
	baseline Baseline,
	extractors map[platform.PackageType]Extractor,
) *Reconciler {
	return &Reconciler{
		cfg:        cfg,
		sysroots:   sysroots,
		baseline:   baseline,
		extractors: extractors,
	}
}

// Reconcile returns the sorted dependency list for the build. The list is
// returned on drift unless strict mode is on, in which case a *DriftError is.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) ([]string, error) {
	arch, err := req.PackageType.ValidateArch(req.Arch)
	if err != nil {
		return nil, err
	}

	extractor, ok := r.extractors[req.PackageType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoExtractor, req.PackageType)
	}

	ctx = logger.WithKV(logger.WithName(ctx, "deps"), "package_type", req.PackageType, "arch", arch)

	native, err := r.nativeFiles(ctx, req.BuildDir, req.ApplicationName)
	if err != nil {
		return nil, err
	}

	runtime := r.runtimeFiles(req.BuildDir, req.ApplicationName)

	logger.InfoKV(ctx, "Scanning files", "native", len(native), "runtime", len(runtime))

	var results []Set

	switch req.PackageType {
	case platform.Debian:
		results, err = r.extractDebian(ctx, extractor, native, runtime, arch)
	default:
		results, err = extractor.Extract(ctx, append(native, runtime...), arch, "")
	}

	if err != nil {
		return nil, err
	}

	deps := FilterBundled(Merge(results...), r.cfg.Bundled).Sorted()

	expected := r.baseline.Lookup(req.PackageType, arch)
	if slices.Equal(expected, deps) {
		logger.InfoKV(ctx, "Dependencies match the baseline", "count", len(deps))

		return deps, nil
	}

	drift := &DriftError{
		PackageType: req.PackageType,
		Arch:        arch,
		Expected:    expected,
		Actual:      deps,
	}

	if r.cfg.Strict {
		return nil, drift
	}

	logger.WarnKV(ctx, "Dependencies differ from the baseline",
		"added", drift.Added(), "removed", drift.Removed(), "details", drift.Error())

	return deps, nil
}

// extractDebian scans native modules against the vendor sysroot and the
// runtime executables against the toolchain sysroot.
func (r *Reconciler) extractDebian(
	ctx context.Context,
	extractor Extractor,
	native, runtime []string,
	arch platform.Arch,
) ([]Set, error) {
	vendorRoot, err := r.sysroots.Acquire(ctx, sysroot.Vendor, arch)
	if err != nil {
		return nil, fmt.Errorf("acquire vendor sysroot: %w", err)
	}

	toolchainRoot, err := r.sysroots.Acquire(ctx, sysroot.Toolchain, arch)
	if err != nil {
		return nil, fmt.Errorf("acquire toolchain sysroot: %w", err)
	}

	nativeDeps, err := extractor.Extract(ctx, native, arch, vendorRoot)
	if err != nil {
		return nil, err
	}

	runtimeDeps, err := extractor.Extract(ctx, runtime, arch, toolchainRoot)
	if err != nil {
		return nil, err
	}

	return append(nativeDeps, runtimeDeps...), nil
}

// nativeFiles returns the native modules plus the auxiliary binary.
func (r *Reconciler) nativeFiles(ctx context.Context, buildDir, app string) ([]string, error) {
	files, err := NativeModules(ctx, filepath.Join(buildDir, r.cfg.NativeModulesDir), r.cfg.NativeSuffix)
	if err != nil {
		return nil, err
	}

	return append(files, filepath.Join(buildDir, config.ExpandApp(r.cfg.AuxiliaryBinary, app))), nil
}

func (r *Reconciler) runtimeFiles(buildDir, app string) []string {
	files := make([]string, 0, len(r.cfg.RuntimeBinaries))
	for _, name := range r.cfg.RuntimeBinaries {
		files = append(files, filepath.Join(buildDir, config.ExpandApp(name, app)))
	}

	return files
}
