// Package config defines the settings shared by the linux-deps binaries and
// the loader that assembles them from defaults, an optional YAML file, the
// environment and command-line flags.
//
// The resulting Config is built once at the entry point and passed down
// explicitly; no other package reads the process environment.
package config
