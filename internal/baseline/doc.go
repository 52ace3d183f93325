// Package baseline holds the reviewed dependency lists the reconciler compares
// freshly computed lists against. A default table is embedded in the binary;
// a YAML file with the same shape can replace it.
package baseline
