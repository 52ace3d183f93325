package sysroot

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LoadChecksums parses a sha256sum formatted file into name -> hex digest.
// A leading "*" on the name (binary mode) is ignored.
func LoadChecksums(path string) (map[string]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read checksums: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	return ParseChecksums(f)
}

// ParseChecksums reads "<digest>  <name>" lines. Blank lines are skipped.
func ParseChecksums(r io.Reader) (map[string]string, error) {
	checksums := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		name := strings.TrimPrefix(fields[1], "*")
		checksums[name] = strings.ToLower(fields[0])
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse checksums: %w", err)
	}

	return checksums, nil
}

// FileSHA256 returns the hex SHA-256 digest of a file, streaming its content.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
