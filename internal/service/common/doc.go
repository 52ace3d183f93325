// Package common holds the setup shared by the command entry points: loading
// the configuration with the standard flag bindings, applying the log level,
// and building the HTTP client and sysroot provisioner from the result.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
