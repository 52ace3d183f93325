package deps

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/linux-deps/internal/fetch"
	"github.com/oshokin/linux-deps/internal/logger"
)

const (
	scriptFileMode os.FileMode = 0o755
	scriptDirMode  os.FileMode = 0o755
)

var (
	errScriptUnavailable = errors.New("dpkg-shlibdeps script is missing and no download url is configured")
	errBadScriptChecksum = errors.New("script checksum must be a hex encoded SHA-256 digest")
)

// ScriptInstaller downloads the dpkg-shlibdeps script when it is not present.
type ScriptInstaller struct {
	client   *fetch.Client
	url      string
	checksum string
}

// NewScriptInstaller creates a ScriptInstaller. checksum is an optional hex
// SHA-256 digest of the script.
func NewScriptInstaller(client *fetch.Client, url, checksum string) *ScriptInstaller {
	return &ScriptInstaller{
		client:   client,
		url:      url,
		checksum: checksum,
	}
}

// Ensure makes sure an executable script exists at path. An existing file is
// left untouched.
func (s *ScriptInstaller) Ensure(ctx context.Context, path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if s.url == "" {
		return fmt.Errorf("%w: %s", errScriptUnavailable, path)
	}

	var checksum []byte

	if s.checksum != "" {
		checksum, err = hex.DecodeString(s.checksum)
		if err != nil || len(checksum) != sha256.Size {
			return fmt.Errorf("%w: %q", errBadScriptChecksum, s.checksum)
		}
	}

	logger.InfoKV(ctx, "Downloading dpkg-shlibdeps", "url", s.url, "path", path)

	data, err := s.client.Get(ctx, s.url, false)
	if err != nil {
		return fmt.Errorf("download dpkg-shlibdeps: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), scriptDirMode); err != nil {
		return err
	}

	// The update swaps files in place, so the target has to exist first.
	placeholder, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}

	_ = placeholder.Close()

	err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: path,
		TargetMode: scriptFileMode,
		Checksum:   checksum,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		_ = os.Remove(path)

		return fmt.Errorf("install dpkg-shlibdeps: %w", err)
	}

	return nil
}
