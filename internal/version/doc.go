// Package version exposes build metadata for the linux-deps binaries.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// When they are not, Commit and BuildTime are read from the VCS stamp in the
// binary's build info.
package version
