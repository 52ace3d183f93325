package sysroot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/linux-deps/internal/config"
	"github.com/oshokin/linux-deps/internal/fetch"
	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/platform"
)

// toolchainTarget is the asset and layout for one architecture.
type toolchainTarget struct {
	asset  string
	triple string
	musl   bool
}

// newToolchainTarget maps an architecture to its release asset.
func newToolchainTarget(arch platform.Arch, cfg config.ToolchainConfig) (toolchainTarget, error) {
	var t toolchainTarget

	switch arch {
	case platform.AMD64:
		t.triple = "x86_64-linux-gnu"
	case platform.ARM64:
		t.triple = "aarch64-linux-gnu"
		if cfg.Musl {
			t.triple = "aarch64-linux-musl"
			t.musl = true
		}
	case platform.ARMHF:
		t.triple = "arm-rpi-linux-gnueabihf"
	default:
		return t, fmt.Errorf("%w: %q has no toolchain sysroot", platform.ErrInvalidArch, arch)
	}

	t.asset = t.triple + cfg.Suffix + ".tar.gz"

	return t, nil
}

// sysrootPath is where the extracted archive keeps its root.
func (t toolchainTarget) sysrootPath(dir string) string {
	if t.musl {
		return filepath.Join(dir, "output", t.triple)
	}

	return filepath.Join(dir, t.triple, t.triple, "sysroot")
}

// toolchainDir returns the cache directory for arch.
func (p *Provisioner) toolchainDir(arch platform.Arch) string {
	if p.cfg.Toolchain.CacheDir != "" {
		return p.cfg.Toolchain.CacheDir
	}

	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%s-sysroot", p.cfg.Toolchain.CachePrefix, arch))
}

func (p *Provisioner) acquireToolchain(ctx context.Context, arch platform.Arch) (string, error) {
	target, err := newToolchainTarget(arch, p.cfg.Toolchain)
	if err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Resolving toolchain sysroot", "asset", target.asset, "triple", target.triple)

	checksums, err := LoadChecksums(p.cfg.Toolchain.ChecksumFile)
	if err != nil {
		return "", err
	}

	expected, ok := checksums[target.asset]
	if !ok {
		return "", fmt.Errorf("%w for %s", ErrMissingChecksum, target.asset)
	}

	dir := p.toolchainDir(arch)
	result := target.sysrootPath(dir)

	if p.isCurrent(ctx, dir, target.asset) {
		logger.DebugKV(ctx, "Toolchain sysroot is up to date", "path", result)

		return result, nil
	}

	logger.InfoKV(ctx, "Installing toolchain sysroot", "dir", dir)

	if err = p.reset(ctx, dir); err != nil {
		return "", err
	}

	policy := fetch.RetryPolicy{
		Attempts: p.cfg.Fetch.Attempts,
		Delay:    p.cfg.Fetch.Delay,
		Timeout:  p.cfg.Fetch.Timeout,
	}

	err = fetch.Retry(ctx, policy, func(ctx context.Context) error {
		return p.fetchToolchain(ctx, target.asset, expected, dir)
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target.asset, err)
	}

	if err = p.commit(dir, target.asset); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Toolchain sysroot installed", "path", result)

	return result, nil
}

// fetchToolchain is one attempt: locate the asset, download, verify, extract.
// A digest mismatch is permanent; everything else may be retried.
func (p *Provisioner) fetchToolchain(ctx context.Context, assetName, expected, dir string) error {
	cfg := p.cfg.Toolchain

	asset, err := p.client.ReleaseAsset(ctx, cfg.APIURL, cfg.Repository, cfg.Release, assetName)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Found release asset", "asset", asset.Name, "url", asset.URL)

	contents, err := p.client.DownloadAsset(ctx, asset)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(contents)
	if actual := hex.EncodeToString(sum[:]); actual != expected {
		return fetch.Permanent(fmt.Errorf("%w for %s: expected %s, actual %s",
			ErrChecksumMismatch, asset.URL, expected, actual))
	}

	logger.DebugKV(ctx, "Verified SHA256 checksum", "asset", asset.Name, "bytes", len(contents))

	if err = p.extractor.Extract(ctx, bytes.NewReader(contents), dir); err != nil {
		return fmt.Errorf("extract %s: %w", assetName, err)
	}

	return nil
}
