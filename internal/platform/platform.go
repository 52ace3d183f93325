// Package platform defines the Linux package types and the per-type CPU
// architecture tokens accepted by the tools.
package platform

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// PackageType is the Linux package format being produced.
type PackageType string

// Arch is an architecture token in the vocabulary of a PackageType.
type Arch string

// Supported package types.
const (
	Debian PackageType = "deb"
	RPM    PackageType = "rpm"
)

// Debian architectures.
const (
	AMD64 Arch = "amd64"
	ARM64 Arch = "arm64"
	ARMHF Arch = "armhf"
)

// RPM architectures.
const (
	X8664   Arch = "x86_64"
	AArch64 Arch = "aarch64"
	ARMv7HL Arch = "armv7hl"
)

var (
	// ErrInvalidArch is returned for an architecture outside the package type's set.
	ErrInvalidArch = errors.New("invalid architecture")
	// ErrUnknownPackageType is returned for anything other than deb or rpm.
	ErrUnknownPackageType = errors.New("unknown package type")
)

// PackageTypes lists the supported package types.
func PackageTypes() []PackageType {
	return []PackageType{Debian, RPM}
}

// ParsePackageType converts a user supplied string into a PackageType.
func ParsePackageType(s string) (PackageType, error) {
	pt := PackageType(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(PackageTypes(), pt) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPackageType, s)
	}

	return pt, nil
}

// Archs returns the architectures valid for the package type in a stable order.
func (p PackageType) Archs() []Arch {
	switch p {
	case Debian:
		return []Arch{AMD64, ARM64, ARMHF}
	case RPM:
		return []Arch{X8664, AArch64, ARMv7HL}
	default:
		return nil
	}
}

// ValidateArch checks the token against the package type's enumeration.
// Matching is exact: "AMD64" is not "amd64".
func (p PackageType) ValidateArch(token string) (Arch, error) {
	if p != Debian && p != RPM {
		return "", fmt.Errorf("%w: %q", ErrUnknownPackageType, string(p))
	}

	arch := Arch(token)
	if !slices.Contains(p.Archs(), arch) {
		return "", fmt.Errorf("%w: %q is not a %s architecture", ErrInvalidArch, token, p)
	}

	return arch, nil
}

// String implements fmt.Stringer.
func (p PackageType) String() string {
	return string(p)
}

// String implements fmt.Stringer.
func (a Arch) String() string {
	return string(a)
}

// LibraryTriple returns the multiarch directory name Debian uses for the
// architecture's shared libraries (for example x86_64-linux-gnu).
func (a Arch) LibraryTriple() (string, bool) {
	switch a {
	case AMD64:
		return "x86_64-linux-gnu", true
	case ARM64:
		return "aarch64-linux-gnu", true
	case ARMHF:
		return "arm-linux-gnueabihf", true
	default:
		return "", false
	}
}
