package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidateArch checks that every package type only accepts its own tokens.
func TestValidateArch(t *testing.T) {
	t.Parallel()

	for _, arch := range []string{"amd64", "arm64", "armhf"} {
		got, err := Debian.ValidateArch(arch)
		require.NoError(t, err)
		require.Equal(t, Arch(arch), got)

		_, err = RPM.ValidateArch(arch)
		require.ErrorIs(t, err, ErrInvalidArch)
	}

	for _, arch := range []string{"x86_64", "aarch64", "armv7hl"} {
		got, err := RPM.ValidateArch(arch)
		require.NoError(t, err)
		require.Equal(t, Arch(arch), got)

		_, err = Debian.ValidateArch(arch)
		require.ErrorIs(t, err, ErrInvalidArch)
	}

	_, err := Debian.ValidateArch("AMD64")
	require.ErrorIs(t, err, ErrInvalidArch)

	_, err = PackageType("apk").ValidateArch("amd64")
	require.ErrorIs(t, err, ErrUnknownPackageType)
}

// TestParsePackageType covers normalization and rejection.
func TestParsePackageType(t *testing.T) {
	t.Parallel()

	pt, err := ParsePackageType(" DEB ")
	require.NoError(t, err)
	require.Equal(t, Debian, pt)

	pt, err = ParsePackageType("rpm")
	require.NoError(t, err)
	require.Equal(t, RPM, pt)

	_, err = ParsePackageType("snap")
	require.ErrorIs(t, err, ErrUnknownPackageType)
}

// TestLibraryTriple covers the Debian multiarch directory names.
func TestLibraryTriple(t *testing.T) {
	t.Parallel()

	triple, ok := ARMHF.LibraryTriple()
	require.True(t, ok)
	require.Equal(t, "arm-linux-gnueabihf", triple)

	_, ok = X8664.LibraryTriple()
	require.False(t, ok)
}
