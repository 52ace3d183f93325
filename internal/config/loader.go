package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix namespaces the automatic environment bindings (LINUX_DEPS_DEPS_STRICT).
const envPrefix = "LINUX_DEPS"

// Loader assembles a Config from defaults, a YAML file, the environment and flags,
// in increasing order of precedence.
type Loader struct {
	v *viper.Viper
	// flags maps config keys to command-line flag names.
	flags map[string]string
	// dotenv is the optional .env file loaded before the environment is read.
	dotenv string
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithFlag binds a command-line flag to a configuration key.
func WithFlag(key, flag string) LoaderOption {
	return func(l *Loader) {
		l.flags[key] = flag
	}
}

// WithDotEnv changes the .env file consulted before reading the environment.
// An empty name disables .env loading.
func WithDotEnv(name string) LoaderOption {
	return func(l *Loader) {
		l.dotenv = name
	}
}

// NewLoader creates a configuration loader with its own viper instance.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		v:      viper.New(),
		flags:  make(map[string]string),
		dotenv: ".env",
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads path (or DefaultConfigFilename when path is empty and the file
// exists), overlays the environment and the changed flags of fs, and validates.
func (l *Loader) Load(path string, fs *pflag.FlagSet) (*Config, error) {
	if l.dotenv != "" {
		// A missing .env is the common case.
		_ = godotenv.Load(l.dotenv)
	}

	l.setupDefaults()

	if err := l.readConfigFile(path); err != nil {
		return nil, err
	}

	if err := l.bindEnv(); err != nil {
		return nil, err
	}

	if err := l.bindFlags(fs); err != nil {
		return nil, err
	}

	cfg := new(Config)
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupDefaults registers every key so that environment lookups and
// Unmarshal see the full key space.
func (l *Loader) setupDefaults() {
	def := Default()

	defaults := map[string]any{
		"log_level":                 def.LogLevel,
		"access_token":              def.AccessToken,
		"verify_cache":              def.VerifyCache,
		"progress":                  def.Progress,
		"fetch.attempts":            def.Fetch.Attempts,
		"fetch.delay":               def.Fetch.Delay,
		"fetch.timeout":             def.Fetch.Timeout,
		"fetch.user_agent":          def.Fetch.UserAgent,
		"toolchain.cache_dir":       def.Toolchain.CacheDir,
		"toolchain.cache_prefix":    def.Toolchain.CachePrefix,
		"toolchain.suffix":          def.Toolchain.Suffix,
		"toolchain.musl":            def.Toolchain.Musl,
		"toolchain.repository":      def.Toolchain.Repository,
		"toolchain.release":         def.Toolchain.Release,
		"toolchain.api_url":         def.Toolchain.APIURL,
		"toolchain.checksum_file":   def.Toolchain.ChecksumFile,
		"vendor.pin_file":           def.Vendor.PinFile,
		"vendor.manifest_url":       def.Vendor.ManifestURL,
		"vendor.distro":             def.Vendor.Distro,
		"vendor.mirror_url":         def.Vendor.MirrorURL,
		"vendor.root_dir":           def.Vendor.RootDir,
		"vendor.download_attempts":  def.Vendor.DownloadAttempts,
		"deps.strict":               def.Deps.Strict,
		"deps.baseline_file":        def.Deps.BaselineFile,
		"deps.native_modules_dir":   def.Deps.NativeModulesDir,
		"deps.native_suffix":        def.Deps.NativeSuffix,
		"deps.auxiliary_binary":     def.Deps.AuxiliaryBinary,
		"deps.runtime_binaries":     def.Deps.RuntimeBinaries,
		"deps.bundled":              def.Deps.Bundled,
		"deps.debian.perl":          def.Deps.Debian.Perl,
		"deps.debian.script":        def.Deps.Debian.Script,
		"deps.debian.script_url":    def.Deps.Debian.ScriptURL,
		"deps.debian.script_sha256": def.Deps.Debian.ScriptSHA256,
		"deps.debian.local_shlibs":  def.Deps.Debian.LocalShlibs,
		"deps.debian.extra_depends": def.Deps.Debian.ExtraDepends,
		"deps.rpm.find_requires":    def.Deps.RPM.FindRequires,
		"deps.rpm.extra_depends":    def.Deps.RPM.ExtraDepends,
	}

	for key, value := range defaults {
		l.v.SetDefault(key, value)
	}
}

// readConfigFile loads the YAML settings. An explicit path must exist; the
// default one is optional.
func (l *Loader) readConfigFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read settings: %w", err)
	}

	l.v.SetConfigFile(path)
	l.v.SetConfigType("yaml")

	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read settings %s: %w", path, err)
	}

	return nil
}

// bindEnv wires the well-known variables plus LINUX_DEPS_<KEY> for every key.
func (l *Loader) bindEnv() error {
	l.v.SetEnvPrefix(envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	bindings := map[string][]string{
		"toolchain.cache_dir": {"SYSROOT_DIR", envPrefix + "_TOOLCHAIN_CACHE_DIR"},
		"toolchain.suffix":    {"SYSROOT_SUFFIX", envPrefix + "_TOOLCHAIN_SUFFIX"},
		"access_token":        {"GITHUB_TOKEN", envPrefix + "_ACCESS_TOKEN"},
	}

	for key, names := range bindings {
		if err := l.v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	return nil
}

// bindFlags lets explicitly set flags override every other source.
func (l *Loader) bindFlags(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}

	for key, name := range l.flags {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}

		if err := l.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}
