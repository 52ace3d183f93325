// Package provision is the entry point of sysroot-installer: it materializes
// one sysroot and prints its local path.
package provision
