package deps

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/linux-deps/internal/platform"
)

func TestDriftError(t *testing.T) {
	t.Parallel()

	err := &DriftError{
		PackageType: platform.Debian,
		Arch:        platform.AMD64,
		Expected:    []string{"libc.so.6", "libold.so.1"},
		Actual:      []string{"libc.so.6", "libnew.so.1"},
	}

	require.Equal(t, []string{"libnew.so.1"}, err.Added())
	require.Equal(t, []string{"libold.so.1"}, err.Removed())
	require.True(t, errors.Is(err, ErrDrift))
	require.Contains(t, err.Error(), "Old:\n  \"libc.so.6\"\n  \"libold.so.1\"\n")
	require.Contains(t, err.Error(), "New:\n  \"libc.so.6\"\n  \"libnew.so.1\"\n")
	require.Contains(t, err.Error(), "Added:\n  \"libnew.so.1\"")
}

func TestDriftError_OrderOnly(t *testing.T) {
	t.Parallel()

	err := &DriftError{
		PackageType: platform.RPM,
		Arch:        platform.X8664,
		Expected:    []string{"libB", "libA"},
		Actual:      []string{"libA", "libB"},
	}

	require.Empty(t, err.Added())
	require.Empty(t, err.Removed())
	require.Contains(t, err.Error(), "Only the order differs")
}
