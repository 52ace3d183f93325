package baseline

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/linux-deps/internal/platform"
)

// Table maps package type -> architecture -> ordered expected dependencies.
type Table map[platform.PackageType]map[platform.Arch][]string

var errEmptyEntry = errors.New("baseline entry must not be empty")

//go:embed reference.yaml
var reference []byte

// Default returns the embedded reference table.
func Default() (Table, error) {
	return Parse(reference)
}

// Load reads the table at path, or the embedded one when path is empty.
func Load(path string) (Table, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// Parse decodes a YAML table and checks every key against the known package
// types and their architectures.
func Parse(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode baseline: %w", err)
	}

	for pt, archs := range t {
		if _, err := platform.ParsePackageType(string(pt)); err != nil {
			return nil, err
		}

		for arch, deps := range archs {
			if _, err := pt.ValidateArch(string(arch)); err != nil {
				return nil, err
			}

			if slices.Contains(deps, "") {
				return nil, fmt.Errorf("%w: %s/%s", errEmptyEntry, pt, arch)
			}
		}
	}

	return t, nil
}

// Lookup returns a copy of the expected list. A missing entry is an empty
// baseline, so any computed dependency shows up as drift.
func (t Table) Lookup(pt platform.PackageType, arch platform.Arch) []string {
	return slices.Clone(t[pt][arch])
}
