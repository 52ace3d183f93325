// Package deps computes the shared-library dependencies a Linux package must
// declare and compares them with the reviewed baseline.
//
// The Reconciler collects the native modules and runtime executables of a
// build, asks a package-type specific Extractor for the libraries each of them
// links against, drops what the application bundles itself and diffs the
// sorted result against the baseline table. Dependency drift is an error in
// strict mode and a warning otherwise.
package deps
