package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/linux-deps/internal/service/common"
	"github.com/oshokin/linux-deps/internal/service/provision"
	"github.com/oshokin/linux-deps/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command for installing sysroots.
	rootCmd = &cobra.Command{
		Use:   "sysroot-installer <toolchain|vendor> <arch>",
		Short: "Download, verify and cache a sysroot, then print its path.",
		Long: `Ensures the sysroot of the given kind is present for a Debian architecture
(amd64, arm64 or armhf) and prints its local path.

toolchain: generic toolchain sysroot published as GitHub release assets and
verified against the checked-in checksum table.
vendor: platform-vendor sysroot listed in the upstream sysroots.json manifest
for the version pinned in .npmrc.

A cached sysroot whose marker names the expected content is reused without
any network access.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &provision.Options{
				ConfigPath: configPath,
				Flags:      cmd.Flags(),
				Kind:       args[0],
				Arch:       args[1],
				Stdout:     cmd.OutOrStdout(),
			}

			return provision.Run(ctx, options)
		},
	}
)

// Execute runs the sysroot-installer CLI and exits with non-zero status on error.
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
	flags.String(common.FlagCacheDir, "", "toolchain sysroot cache directory")
	flags.Bool(common.FlagVerifyCache, false, "re-hash cached sysroots before reusing them")
	flags.Bool(common.FlagNoProgress, false, "hide download progress bars")
	flags.String(common.FlagLogLevel, "info", "log level: debug, info, warn or error")
}
