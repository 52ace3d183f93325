package sysroot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"golang.org/x/mod/sumdb/dirhash"
)

const (
	// markerName holds the identifier of the materialized content.
	markerName = ".stamp"
	// treeHashName holds the dirhash of the tree when cache verification is on.
	treeHashName = ".stamp.h1"

	markerFileMode os.FileMode = 0o644
)

var errTreeChanged = errors.New("sysroot content changed since install")

// readMarker returns the marker content verbatim.
func readMarker(dir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, markerName))
	if err != nil {
		return "", false
	}

	return string(data), true
}

// writeMarker atomically records id. With withHash the tree hash is stored
// first, so a present .stamp always has a matching .stamp.h1.
func writeMarker(dir, id string, withHash bool) error {
	if withHash {
		hash, err := treeHash(dir)
		if err != nil {
			return err
		}

		if err = renameio.WriteFile(filepath.Join(dir, treeHashName), []byte(hash), markerFileMode); err != nil {
			return err
		}
	}

	return renameio.WriteFile(filepath.Join(dir, markerName), []byte(id), markerFileMode)
}

// verifyTree compares the stored tree hash with the current content.
func verifyTree(dir string) error {
	stored, err := os.ReadFile(filepath.Join(dir, treeHashName))
	if err != nil {
		return fmt.Errorf("read tree hash: %w", err)
	}

	current, err := treeHash(dir)
	if err != nil {
		return err
	}

	if strings.TrimSpace(string(stored)) != current {
		return errTreeChanged
	}

	return nil
}

// treeHash computes an h1: dirhash of dir, excluding the markers. Symlinks are
// hashed by their target text since many of them dangle outside the image.
func treeHash(dir string) (string, error) {
	files, err := dirhash.DirFiles(dir, "")
	if err != nil {
		return "", fmt.Errorf("list %s: %w", dir, err)
	}

	kept := files[:0]

	for _, name := range files {
		if name == markerName || name == treeHashName {
			continue
		}

		kept = append(kept, name)
	}

	hash, err := dirhash.Hash1(kept, func(name string) (io.ReadCloser, error) {
		return openForHash(filepath.Join(dir, filepath.FromSlash(name)))
	})
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", dir, err)
	}

	return hash, nil
}

func openForHash(path string) (io.ReadCloser, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}

		return io.NopCloser(strings.NewReader("symlink " + target)), nil
	}

	return os.Open(filepath.Clean(path))
}
