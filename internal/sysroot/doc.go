// Package sysroot downloads, verifies and caches the root filesystem images
// used as library search context when scanning Debian package dependencies.
//
// Two independently versioned sources are supported. Toolchain sysroots are
// release assets of a GitHub repository verified against a checked-in
// sha256sum table. Vendor sysroots are listed in a manifest published by the
// upstream runtime at the pinned version and fetched from a mirror by digest.
//
// Every cache directory carries a .stamp marker naming the content it holds.
// A matching marker short-circuits all network work; it is an identity check,
// not an integrity proof, unless cache verification is enabled.
package sysroot
