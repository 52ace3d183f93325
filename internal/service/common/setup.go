//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/oshokin/linux-deps/internal/config"
	"github.com/oshokin/linux-deps/internal/fetch"
	"github.com/oshokin/linux-deps/internal/logger"
	"github.com/oshokin/linux-deps/internal/sysroot"
	"github.com/oshokin/linux-deps/internal/version"
)

// Command-line flag names shared by the binaries.
const (
	FlagConfig      = "config"
	FlagLogLevel    = "log-level"
	FlagCacheDir    = "cache-dir"
	FlagVerifyCache = "verify-cache"
	FlagNoProgress  = "no-progress"
	FlagStrict      = "strict"
	FlagBaseline    = "baseline"
	FlagOutput      = "output"
)

var errUnknownLogLevel = errors.New("unknown log level")

// Runtime is the state every command builds from its configuration.
type Runtime struct {
	// Config is the validated configuration.
	Config *config.Config
	// Client is the HTTP client carrying the access token and user agent.
	Client *fetch.Client
	// Progress receives download progress bars; nil disables them.
	Progress io.Writer
}

// Setup loads the configuration from configPath, the environment and the
// changed flags of fs, then applies the configured log level.
func Setup(ctx context.Context, configPath string, fs *pflag.FlagSet) (*Runtime, error) {
	loader := config.NewLoader(
		config.WithFlag("log_level", FlagLogLevel),
		config.WithFlag("toolchain.cache_dir", FlagCacheDir),
		config.WithFlag("verify_cache", FlagVerifyCache),
		config.WithFlag("deps.strict", FlagStrict),
		config.WithFlag("deps.baseline_file", FlagBaseline),
	)

	cfg, err := loader.Load(configPath, fs)
	if err != nil {
		return nil, err
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	logger.SetLevel(level)

	// --no-progress is a negation, so it cannot be bound to the key directly.
	if fs != nil {
		if disabled, err := fs.GetBool(FlagNoProgress); err == nil && disabled {
			cfg.Progress = false
		}
	}

	rt := &Runtime{
		Config: cfg,
		Client: fetch.NewClient(
			fetch.WithToken(cfg.AccessToken),
			fetch.WithUserAgent(cfg.Fetch.UserAgent+"/"+version.Short()),
		),
	}

	if cfg.Progress {
		rt.Progress = os.Stderr
	}

	logger.DebugKV(ctx, "Configuration loaded",
		"version", version.Short(),
		"log_level", level,
		"authenticated", cfg.AccessToken != "",
		"verify_cache", cfg.VerifyCache)

	return rt, nil
}

// Provisioner returns a sysroot provisioner sharing the runtime's client.
func (r *Runtime) Provisioner() *sysroot.Provisioner {
	opts := []sysroot.Option{sysroot.WithClient(r.Client)}
	if r.Progress != nil {
		opts = append(opts, sysroot.WithProgress(r.Progress))
	}

	return sysroot.New(r.Config, opts...)
}
