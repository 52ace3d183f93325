package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds every setting the provisioner and the reconciler need.
type Config struct {
	// LogLevel is the minimum level printed to stderr.
	LogLevel string `mapstructure:"log_level"`
	// AccessToken, when set, is sent as a bearer credential to GitHub.
	AccessToken string `mapstructure:"access_token"`
	// VerifyCache re-hashes a cached sysroot tree before trusting its marker.
	VerifyCache bool `mapstructure:"verify_cache"`
	// Progress shows a progress bar while streaming large downloads.
	Progress bool `mapstructure:"progress"`

	Fetch     FetchConfig     `mapstructure:"fetch"`
	Toolchain ToolchainConfig `mapstructure:"toolchain"`
	Vendor    VendorConfig    `mapstructure:"vendor"`
	Deps      DepsConfig      `mapstructure:"deps"`
}

// FetchConfig tunes the retrying release download.
type FetchConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	Delay     time.Duration `mapstructure:"delay"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ToolchainConfig describes the generic toolchain sysroots published as
// release assets.
type ToolchainConfig struct {
	// CacheDir overrides the per-architecture cache directory.
	CacheDir string `mapstructure:"cache_dir"`
	// CachePrefix names the default cache directory: <tmp>/<prefix>-<arch>-sysroot.
	CachePrefix string `mapstructure:"cache_prefix"`
	// Suffix is appended to the triple to form the asset name.
	Suffix string `mapstructure:"suffix"`
	// Musl selects the musl flavor where one exists.
	Musl bool `mapstructure:"musl"`
	// Repository is the owner/name of the GitHub repository hosting the assets.
	Repository string `mapstructure:"repository"`
	// Release is the release tag holding the assets.
	Release string `mapstructure:"release"`
	// APIURL is the GitHub REST API base URL.
	APIURL string `mapstructure:"api_url"`
	// ChecksumFile is a sha256sum formatted table of expected asset digests.
	ChecksumFile string `mapstructure:"checksum_file"`
}

// VendorConfig describes the platform-vendor sysroots listed in an upstream manifest.
type VendorConfig struct {
	// PinFile holds the pinned upstream version as target="<version>".
	PinFile string `mapstructure:"pin_file"`
	// ManifestURL is a fmt template receiving the pinned version.
	ManifestURL string `mapstructure:"manifest_url"`
	// Distro prefixes the manifest keys (bullseye_amd64).
	Distro string `mapstructure:"distro"`
	// MirrorURL is the base URL tarballs are fetched from by checksum.
	MirrorURL string `mapstructure:"mirror_url"`
	// RootDir holds the extracted sysroot directories.
	RootDir string `mapstructure:"root_dir"`
	// DownloadAttempts bounds the streaming tarball download.
	DownloadAttempts int `mapstructure:"download_attempts"`
}

// DepsConfig drives the dependency reconciler and its extractors.
type DepsConfig struct {
	// Strict turns dependency drift into an error instead of a warning.
	Strict bool `mapstructure:"strict"`
	// BaselineFile overrides the embedded reference tables.
	BaselineFile string `mapstructure:"baseline_file"`
	// NativeModulesDir is scanned for native modules, relative to the build dir.
	NativeModulesDir string `mapstructure:"native_modules_dir"`
	// NativeSuffix selects native module files.
	NativeSuffix string `mapstructure:"native_suffix"`
	// AuxiliaryBinary is always scanned. "{app}" expands to the application name.
	AuxiliaryBinary string `mapstructure:"auxiliary_binary"`
	// RuntimeBinaries are the executables shipped next to the application.
	RuntimeBinaries []string `mapstructure:"runtime_binaries"`
	// Bundled lists library name prefixes the application ships itself.
	Bundled []string `mapstructure:"bundled"`

	Debian DebianToolConfig `mapstructure:"debian"`
	RPM    RPMToolConfig    `mapstructure:"rpm"`
}

// DebianToolConfig configures the dpkg-shlibdeps based extractor.
type DebianToolConfig struct {
	Perl string `mapstructure:"perl"`
	// Script is the dpkg-shlibdeps.pl path, downloaded from ScriptURL when missing.
	Script       string `mapstructure:"script"`
	ScriptURL    string `mapstructure:"script_url"`
	ScriptSHA256 string `mapstructure:"script_sha256"`
	// LocalShlibs is an optional shlibs file consulted before the system ones.
	LocalShlibs  string   `mapstructure:"local_shlibs"`
	ExtraDepends []string `mapstructure:"extra_depends"`
}

// RPMToolConfig configures the find-requires based extractor.
type RPMToolConfig struct {
	FindRequires string   `mapstructure:"find_requires"`
	ExtraDepends []string `mapstructure:"extra_depends"`
}

const (
	// DefaultConfigFilename is read when present and no --config is given.
	DefaultConfigFilename = "linux-deps.yaml"

	// AppPlaceholder is replaced by the application name in binary paths.
	AppPlaceholder = "{app}"
)

var (
	errConfigIsNotSet  = errors.New("configuration is not set")
	errInvalidAttempts = errors.New("attempts must be positive")
	errTemplateVerb    = errors.New("manifest url must contain exactly one %s")
)

// Default returns a configuration populated with the stock values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Progress: true,
		Fetch: FetchConfig{
			Attempts:  10,
			Delay:     time.Second,
			Timeout:   30 * time.Second,
			UserAgent: "linux-deps",
		},
		Toolchain: ToolchainConfig{
			CachePrefix:  "toolchain",
			Suffix:       "-gcc-10.5.0",
			Repository:   "Microsoft/vscode-linux-build-agent",
			Release:      "v20250407-330404",
			APIURL:       "https://api.github.com",
			ChecksumFile: "build/checksums/sysroot.txt",
		},
		Vendor: VendorConfig{
			PinFile:          ".npmrc",
			ManifestURL:      "https://raw.githubusercontent.com/electron/electron/v%s/script/sysroots.json",
			Distro:           "bullseye",
			MirrorURL:        "https://msftelectronbuild.z5.web.core.windows.net/sysroots/toolchain",
			DownloadAttempts: 3,
		},
		Deps: DepsConfig{
			Strict:           true,
			NativeModulesDir: "resources/app/node_modules",
			NativeSuffix:     ".node",
			AuxiliaryBinary:  "bin/" + AppPlaceholder + "-tunnel",
			RuntimeBinaries:  []string{AppPlaceholder, "chrome-sandbox", "chrome_crashpad_handler"},
			Bundled: []string{
				"libEGL.so",
				"libGLESv2.so",
				"libvulkan.so.1",
				"libvk_swiftshader.so",
				"libffmpeg.so",
			},
			Debian: DebianToolConfig{
				Perl:      "perl",
				Script:    "build/linux/dpkg-shlibdeps.pl",
				ScriptURL: "https://raw.githubusercontent.com/chromium/chromium/100.0.4894.0/third_party/dpkg-shlibdeps/dpkg-shlibdeps.pl",
				ExtraDepends: []string{
					"ca-certificates",
					"libgtk-3-0 (>= 3.9.10) | libgtk-4-1",
					"libnss3 (>= 3.26)",
					"libcurl3-gnutls | libcurl3-nss | libcurl4 | libcurl3",
					"xdg-utils (>= 1.0.2)",
				},
			},
			RPM: RPMToolConfig{
				FindRequires: "/usr/lib/rpm/find-requires",
				ExtraDepends: []string{"ca-certificates", "xdg-utils"},
			},
		},
	}
}

// Validate fills unset values with defaults and checks formats.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	def := Default()

	setDefault(&cfg.LogLevel, def.LogLevel)
	setDefault(&cfg.Fetch.UserAgent, def.Fetch.UserAgent)
	setDefault(&cfg.Toolchain.CachePrefix, def.Toolchain.CachePrefix)
	setDefault(&cfg.Toolchain.Repository, def.Toolchain.Repository)
	setDefault(&cfg.Toolchain.Release, def.Toolchain.Release)
	setDefault(&cfg.Toolchain.APIURL, def.Toolchain.APIURL)
	setDefault(&cfg.Toolchain.ChecksumFile, def.Toolchain.ChecksumFile)
	setDefault(&cfg.Vendor.PinFile, def.Vendor.PinFile)
	setDefault(&cfg.Vendor.ManifestURL, def.Vendor.ManifestURL)
	setDefault(&cfg.Vendor.Distro, def.Vendor.Distro)
	setDefault(&cfg.Vendor.MirrorURL, def.Vendor.MirrorURL)
	setDefault(&cfg.Vendor.RootDir, os.TempDir())
	setDefault(&cfg.Deps.NativeModulesDir, def.Deps.NativeModulesDir)
	setDefault(&cfg.Deps.NativeSuffix, def.Deps.NativeSuffix)
	setDefault(&cfg.Deps.AuxiliaryBinary, def.Deps.AuxiliaryBinary)
	setDefault(&cfg.Deps.Debian.Perl, def.Deps.Debian.Perl)
	setDefault(&cfg.Deps.Debian.Script, def.Deps.Debian.Script)
	setDefault(&cfg.Deps.RPM.FindRequires, def.Deps.RPM.FindRequires)

	if len(cfg.Deps.RuntimeBinaries) == 0 {
		cfg.Deps.RuntimeBinaries = def.Deps.RuntimeBinaries
	}

	if cfg.Fetch.Attempts == 0 {
		cfg.Fetch.Attempts = def.Fetch.Attempts
	}

	if cfg.Fetch.Delay < 0 {
		cfg.Fetch.Delay = def.Fetch.Delay
	}

	if cfg.Fetch.Timeout <= 0 {
		cfg.Fetch.Timeout = def.Fetch.Timeout
	}

	if cfg.Vendor.DownloadAttempts == 0 {
		cfg.Vendor.DownloadAttempts = def.Vendor.DownloadAttempts
	}

	if cfg.Fetch.Attempts < 0 || cfg.Vendor.DownloadAttempts < 0 {
		return errInvalidAttempts
	}

	if strings.Count(cfg.Vendor.ManifestURL, "%s") != 1 {
		return fmt.Errorf("%w: %q", errTemplateVerb, cfg.Vendor.ManifestURL)
	}

	for name, raw := range map[string]string{
		"toolchain api url": cfg.Toolchain.APIURL,
		"vendor mirror url": cfg.Vendor.MirrorURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

// ExpandApp substitutes the application name into a configured path.
func ExpandApp(path, app string) string {
	return strings.ReplaceAll(path, AppPlaceholder, app)
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
