package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/linux-deps/internal/service/common"
	"github.com/oshokin/linux-deps/internal/service/reconcile"
	"github.com/oshokin/linux-deps/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// outputPath where the YAML report is written instead of stdout.
	outputPath string

	// rootCmd represents the base command for checking package dependencies.
	rootCmd = &cobra.Command{
		Use:   "deps-checker <deb|rpm> <build-dir> <app-name> <arch>",
		Short: "Compute the shared-library dependencies of a Linux package and check them against the baseline.",
		Long: `Scans the native modules and executables of a built application, collects the
shared libraries they need with dpkg-shlibdeps (deb) or find-requires (rpm),
drops the libraries the application bundles and prints the sorted list.

The list is compared with the reviewed baseline for the package type and
architecture. In strict mode (the default) any difference is an error;
with --strict=false it is logged as a warning.

Debian architectures: amd64, arm64, armhf. RPM architectures: x86_64, aarch64, armv7hl.`,
		Args:         cobra.ExactArgs(4),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &reconcile.Options{
				ConfigPath:      configPath,
				Flags:           cmd.Flags(),
				PackageType:     args[0],
				BuildDir:        args[1],
				ApplicationName: args[2],
				Arch:            args[3],
				OutputPath:      outputPath,
				Stdout:          cmd.OutOrStdout(),
			}

			return reconcile.Run(ctx, options)
		},
	}
)

// Execute runs the deps-checker CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, common.FlagConfig, "c", "", "path to configuration file (default linux-deps.yaml when present)")
	flags.StringVarP(&outputPath, common.FlagOutput, "o", "", "write the dependency list as a YAML report to this file")
	flags.String(common.FlagBaseline, "", "baseline table overriding the embedded one")
	flags.Bool(common.FlagStrict, true, "fail when the dependencies differ from the baseline")
	flags.String(common.FlagCacheDir, "", "toolchain sysroot cache directory")
	flags.Bool(common.FlagVerifyCache, false, "re-hash cached sysroots before reusing them")
	flags.Bool(common.FlagNoProgress, false, "hide download progress bars")
	flags.String(common.FlagLogLevel, "info", "log level: debug, info, warn or error")
}
