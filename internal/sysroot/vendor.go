package sysroot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oshokin/linux-deps/internal/archive"
	"github.com/oshokin/linux-deps/internal/fetch"
	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/platform"
)

// pinPattern matches the pinned runtime version in an npmrc style file.
var pinPattern = regexp.MustCompile(`(?m)^target="(.*)"\s*$`)

// ManifestEntry describes one vendor sysroot.
type ManifestEntry struct {
	Sha256Sum  string `json:"Sha256Sum"`
	SysrootDir string `json:"SysrootDir"`
	Tarball    string `json:"Tarball"`
}

// Manifest maps <distro>_<arch> keys to entries.
type Manifest map[string]ManifestEntry

// ParsePinnedVersion reads the target="<version>" line from the pin file.
func ParsePinnedVersion(path string) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read version pin: %w", err)
	}

	match := pinPattern.FindSubmatch(contents)
	if match == nil || len(match[1]) == 0 {
		return "", fmt.Errorf("%w in %s", ErrPinNotFound, path)
	}

	return string(match[1]), nil
}

// ManifestKey returns the manifest key for arch. armhf is published as "arm".
func ManifestKey(distro string, arch platform.Arch) string {
	if arch == platform.ARMHF {
		return distro + "_arm"
	}

	return distro + "_" + string(arch)
}

// Lookup returns the entry for key after checking its fields are usable and
// its tarball is in a format the extractor understands.
func (m Manifest) Lookup(key string) (ManifestEntry, error) {
	entry, ok := m[key]
	if !ok {
		return entry, fmt.Errorf("%w: %s", ErrMissingManifestEntry, key)
	}

	switch {
	case entry.Sha256Sum == "", entry.Tarball == "", entry.SysrootDir == "":
		return entry, fmt.Errorf("%w: %s has empty fields", ErrInvalidManifest, key)
	case !isPlainName(entry.SysrootDir), !isPlainName(entry.Tarball), !isPlainName(entry.Sha256Sum):
		return entry, fmt.Errorf("%w: %s names must not contain path separators", ErrInvalidManifest, key)
	}

	if _, err := archive.FromName(entry.Tarball); err != nil {
		return entry, fmt.Errorf("%w: %s: %w", ErrInvalidManifest, key, err)
	}

	return entry, nil
}

func isPlainName(name string) bool {
	return name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// fetchManifest downloads and decodes the manifest for the pinned version.
// A single failed download is fatal.
func (p *Provisioner) fetchManifest(ctx context.Context) (Manifest, error) {
	version, err := ParsePinnedVersion(p.cfg.Vendor.PinFile)
	if err != nil {
		return nil, err
	}

	manifestURL := fmt.Sprintf(p.cfg.Vendor.ManifestURL, version)

	logger.InfoKV(ctx, "Downloading sysroot manifest", "url", manifestURL, "version", version)

	data, err := p.client.Get(ctx, manifestURL, true)
	if err != nil {
		return nil, fmt.Errorf("cannot retrieve sysroot manifest: %w", err)
	}

	var manifest Manifest
	if err = json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode sysroot manifest %s: %w", manifestURL, err)
	}

	return manifest, nil
}

func (p *Provisioner) acquireVendor(ctx context.Context, arch platform.Arch) (string, error) {
	manifest, err := p.fetchManifest(ctx)
	if err != nil {
		return "", err
	}

	entry, err := manifest.Lookup(ManifestKey(p.cfg.Vendor.Distro, arch))
	if err != nil {
		return "", err
	}

	dir := filepath.Join(p.cfg.Vendor.RootDir, entry.SysrootDir)
	downloadURL := strings.TrimSuffix(p.cfg.Vendor.MirrorURL, "/") + "/" + entry.Sha256Sum

	if p.isCurrent(ctx, dir, downloadURL) {
		logger.DebugKV(ctx, "Vendor sysroot is up to date", "path", dir)

		return dir, nil
	}

	logger.InfoKV(ctx, "Installing vendor sysroot", "dir", dir, "url", downloadURL)

	if err = p.reset(ctx, dir); err != nil {
		return "", err
	}

	tarball := filepath.Join(dir, entry.Tarball)

	err = p.client.DownloadFile(ctx, downloadURL, tarball, fetch.DownloadOptions{
		Attempts: p.cfg.Vendor.DownloadAttempts,
		Progress: p.progress,
	})
	if err != nil {
		return "", err
	}

	actual, err := FileSHA256(tarball)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", tarball, err)
	}

	if !strings.EqualFold(actual, entry.Sha256Sum) {
		_ = os.Remove(tarball)

		return "", fmt.Errorf("%w for %s: expected %s, actual %s",
			ErrChecksumMismatch, entry.Tarball, entry.Sha256Sum, actual)
	}

	if err = archive.ExtractFile(ctx, p.extractor, tarball, dir); err != nil {
		return "", fmt.Errorf("tarball extraction failed: %w", err)
	}

	if err = os.Remove(tarball); err != nil {
		return "", fmt.Errorf("remove tarball: %w", err)
	}

	if err = p.commit(dir, downloadURL); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Vendor sysroot installed", "path", dir)

	return dir, nil
}
