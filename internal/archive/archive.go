// Package archive unpacks compressed tarballs into a directory.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies the outer compression of a tarball.
type Compression int

// Supported compressions.
const (
	None Compression = iota
	Gzip
	XZ
	Zstd
)

var (
	// ErrUnsafePath is returned for entries that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrUnknownFormat is returned when the compression cannot be determined.
	ErrUnknownFormat = errors.New("unknown archive format")
)

const (
	dirMode  os.FileMode = 0o755
	peekSize             = 6
)

// Extractor unpacks an archive stream into dest.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, dest string) error
}

// Tar is the default Extractor. It sniffs the compression from magic bytes.
type Tar struct{}

// Extract implements Extractor.
func (Tar) Extract(ctx context.Context, r io.Reader, dest string) error {
	br := bufio.NewReader(r)

	magic, err := br.Peek(peekSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read archive header: %w", err)
	}

	return Extract(ctx, br, Sniff(magic), dest)
}

// ExtractFile unpacks the archive at path into dest.
func ExtractFile(ctx context.Context, e Extractor, path, dest string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	return e.Extract(ctx, f, dest)
}

// Sniff detects the compression from the first bytes of a stream.
func Sniff(magic []byte) Compression {
	switch {
	case bytes.HasPrefix(magic, []byte{0x1f, 0x8b}):
		return Gzip
	case bytes.HasPrefix(magic, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return XZ
	case bytes.HasPrefix(magic, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		return Zstd
	default:
		return None
	}
}

// FromName guesses the compression from a file name.
func FromName(name string) (Compression, error) {
	switch lower := strings.ToLower(name); {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return Gzip, nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return XZ, nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return Zstd, nil
	case strings.HasSuffix(lower, ".tar"):
		return None, nil
	default:
		return None, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// Extract decompresses r with c and writes the tar entries below dest.
func Extract(ctx context.Context, r io.Reader, c Compression, dest string) error {
	stream, closer, err := decompress(r, c)
	if err != nil {
		return err
	}

	defer closer()

	if err = os.MkdirAll(dest, dirMode); err != nil {
		return err
	}

	root, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}

	tr := tar.NewReader(stream)

	for {
		if err = ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		if err = writeEntry(tr, hdr, dest, root); err != nil {
			return fmt.Errorf("extract %s: %w", hdr.Name, err)
		}
	}
}

func decompress(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}

		return zr, func() { _ = zr.Close() }, nil
	case XZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open xz stream: %w", err)
		}

		return xr, func() {}, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd stream: %w", err)
		}

		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

// writeEntry materializes one tar header. Symlink targets are kept verbatim:
// sysroots carry absolute links that only make sense inside the image.
// root is dest with its own symlinks resolved; nothing is created or
// linked through a directory that resolves outside of it.
func writeEntry(tr *tar.Reader, hdr *tar.Header, dest, root string) error {
	target, err := safeJoin(dest, hdr.Name)
	if err != nil {
		return err
	}

	mode := hdr.FileInfo().Mode()

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err = checkResolved(root, target, hdr.Name); err != nil {
			return err
		}

		return os.MkdirAll(target, mode.Perm()|0o700)
	case tar.TypeReg:
		if err = prepareParent(root, target, hdr.Name); err != nil {
			return err
		}

		// An earlier symlink entry with the same name must not redirect the write.
		_ = os.Remove(target)

		return writeFile(tr, target, mode.Perm())
	case tar.TypeSymlink:
		if err = prepareParent(root, target, hdr.Name); err != nil {
			return err
		}

		_ = os.Remove(target)

		return os.Symlink(hdr.Linkname, target)
	case tar.TypeLink:
		source, err := safeJoin(dest, hdr.Linkname)
		if err != nil {
			return err
		}

		if err = checkResolved(root, filepath.Dir(source), hdr.Linkname); err != nil {
			return err
		}

		if err = prepareParent(root, target, hdr.Name); err != nil {
			return err
		}

		_ = os.Remove(target)

		return os.Link(source, target)
	default:
		// Device nodes and FIFOs are not needed for dependency resolution.
		return nil
	}
}

// prepareParent checks and creates the directory holding target.
func prepareParent(root, target, name string) error {
	parent := filepath.Dir(target)

	if err := checkResolved(root, parent, name); err != nil {
		return err
	}

	return os.MkdirAll(parent, dirMode)
}

// checkResolved resolves the deepest existing ancestor of path (path
// included) and fails when it lies outside root. A dangling symlink on the
// way is refused as well, since creating below it would follow it.
func checkResolved(root, path, name string) error {
	for dir := path; ; {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			if !isWithin(root, resolved) {
				return fmt.Errorf("%w: %s resolves to %s", ErrUnsafePath, name, resolved)
			}

			return nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if _, err = os.Lstat(dir); err == nil {
			return fmt.Errorf("%w: %s goes through a dangling link", ErrUnsafePath, name)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}

		dir = parent
	}
}

func writeFile(r io.Reader, target string, perm os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, r); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !isWithin(dest, target) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return target, nil
}

func isWithin(base, path string) bool {
	rel, err := filepath.Rel(base, path)

	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
