package deps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/linux-deps/internal/platform"
)

// ErrDrift is matched by every DriftError.
var ErrDrift = errors.New("dependency drift")

// DriftError describes a computed dependency list that differs from the baseline.
type DriftError struct {
	PackageType platform.PackageType
	Arch        platform.Arch
	// Expected is the baseline list.
	Expected []string
	// Actual is the freshly computed, sorted list.
	Actual []string
}

// Added returns the computed entries missing from the baseline.
func (e *DriftError) Added() []string {
	return difference(e.Actual, e.Expected)
}

// Removed returns the baseline entries no longer computed.
func (e *DriftError) Removed() []string {
	return difference(e.Expected, e.Actual)
}

// Error lists both sequences so the baseline can be updated by copy and paste.
func (e *DriftError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "the dependencies list for %s/%s has changed\n", e.PackageType, e.Arch)
	writeList(&b, "Old", e.Expected)
	writeList(&b, "New", e.Actual)

	added, removed := e.Added(), e.Removed()
	if len(added) == 0 && len(removed) == 0 {
		b.WriteString("Only the order differs")

		return b.String()
	}

	writeList(&b, "Added", added)
	writeList(&b, "Removed", removed)

	return strings.TrimSuffix(b.String(), "\n")
}

// Unwrap makes errors.Is(err, ErrDrift) hold.
func (e *DriftError) Unwrap() error {
	return ErrDrift
}

func writeList(b *strings.Builder, title string, items []string) {
	b.WriteString(title)
	b.WriteString(":\n")

	for _, item := range items {
		fmt.Fprintf(b, "  %q\n", item)
	}
}

// difference returns the items of a absent from b, keeping a's order.
func difference(a, b []string) []string {
	present := NewSet(b...)

	var out []string

	for _, item := range a {
		if !present.Has(item) {
			out = append(out, item)
		}
	}

	return out
}
