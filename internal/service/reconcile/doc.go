// Package reconcile is the entry point of deps-checker.
//
// It wires the configuration, the baseline table, the sysroot provisioner and
// the package-type specific extractors into a deps.Reconciler, runs it for one
// build and prints the resulting dependency list, one entry per line, or
// writes it as a YAML report.
package reconcile
