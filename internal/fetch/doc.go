// Package fetch holds the HTTP side of sysroot acquisition: an authenticated
// client, a fixed-delay retry loop with per-attempt timeouts, GitHub release
// asset lookup, and a streaming file download with bounded attempts.
package fetch
