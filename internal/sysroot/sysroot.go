package sysroot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/linux-deps/internal/archive"
	"github.com/oshokin/linux-deps/internal/config"
	"github.com/oshokin/linux-deps/internal/fetch"
	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/platform"
)

// Kind selects one of the two sysroot sources.
type Kind string

// Sysroot kinds.
const (
	// Toolchain is the generic toolchain sysroot published as release assets.
	Toolchain Kind = "toolchain"
	// Vendor is the platform-vendor sysroot listed in the upstream manifest.
	Vendor Kind = "vendor"
)

var (
	// ErrUnknownKind is returned for a kind other than toolchain or vendor.
	ErrUnknownKind = errors.New("unknown sysroot kind")
	// ErrMissingChecksum is returned when the checksum table has no entry for the archive.
	ErrMissingChecksum = errors.New("missing checksum")
	// ErrChecksumMismatch is returned when downloaded content does not match its digest.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrMissingManifestEntry is returned when the manifest does not list the architecture.
	ErrMissingManifestEntry = errors.New("architecture missing from sysroot manifest")
	// ErrInvalidManifest is returned for an entry with empty or unsafe fields.
	ErrInvalidManifest = errors.New("invalid sysroot manifest entry")
	// ErrPinNotFound is returned when the pin file has no target version.
	ErrPinNotFound = errors.New("pinned version not found")
)

// cacheDirMode is applied to freshly created cache directories.
const cacheDirMode os.FileMode = 0o755

// ParseKind converts user input to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Toolchain, Vendor:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Provisioner materializes sysroots on demand.
type Provisioner struct {
	cfg       *config.Config
	client    *fetch.Client
	extractor archive.Extractor
	progress  io.Writer
}

// Option customizes a Provisioner.
type Option func(*Provisioner)

// WithClient replaces the HTTP client.
func WithClient(c *fetch.Client) Option {
	return func(p *Provisioner) {
		p.client = c
	}
}

// WithExtractor replaces the archive extractor.
func WithExtractor(e archive.Extractor) Option {
	return func(p *Provisioner) {
		p.extractor = e
	}
}

// WithProgress sends download progress bars to w.
func WithProgress(w io.Writer) Option {
	return func(p *Provisioner) {
		p.progress = w
	}
}

// New creates a Provisioner. cfg must have been validated.
func New(cfg *config.Config, opts ...Option) *Provisioner {
	p := &Provisioner{
		cfg: cfg,
		client: fetch.NewClient(
			fetch.WithToken(cfg.AccessToken),
			fetch.WithUserAgent(cfg.Fetch.UserAgent),
		),
		extractor: archive.Tar{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Acquire returns the local path of the requested sysroot, downloading it first
// when the cache is missing or holds another version. Only Debian
// architectures have sysroots.
func (p *Provisioner) Acquire(ctx context.Context, kind Kind, token platform.Arch) (string, error) {
	arch, err := platform.Debian.ValidateArch(string(token))
	if err != nil {
		return "", err
	}

	ctx = logger.WithKV(logger.WithName(ctx, "sysroot"), "kind", kind, "arch", arch)

	switch kind {
	case Toolchain:
		return p.acquireToolchain(ctx, arch)
	case Vendor:
		return p.acquireVendor(ctx, arch)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// isCurrent reports whether dir already holds the content identified by id.
func (p *Provisioner) isCurrent(ctx context.Context, dir, id string) bool {
	marker, ok := readMarker(dir)
	if !ok || marker != id {
		return false
	}

	if !p.cfg.VerifyCache {
		return true
	}

	if err := verifyTree(dir); err != nil {
		logger.WarnKV(ctx, "Cached sysroot failed verification, reinstalling", "dir", dir, "error", err)

		return false
	}

	return true
}

// reset wipes dir and recreates it empty.
func (p *Provisioner) reset(ctx context.Context, dir string) error {
	warnConcurrentInstances(ctx)

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, cacheDirMode); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	return nil
}

// commit records id as the content of dir. Nothing is written on failure
// paths, so an interrupted install is retried from scratch next time.
func (p *Provisioner) commit(dir, id string) error {
	if err := writeMarker(dir, id, p.cfg.VerifyCache); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}

	return nil
}
