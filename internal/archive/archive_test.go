package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type entry struct {
	name     string
	body     string
	linkname string
	typeflag byte
}

func buildTar(t *testing.T, entries []entry) []byte {
	t.Helper()

	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Mode:     0o755,
			Size:     int64(len(e.body)),
		}
		if e.typeflag != tar.TypeReg {
			hdr.Size = 0
		}

		require.NoError(t, tw.WriteHeader(hdr))

		if e.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())

	return buf.Bytes()
}

func compress(t *testing.T, c Compression, data []byte) []byte {
	t.Helper()

	var (
		buf bytes.Buffer
		w   io.WriteCloser
		err error
	)

	switch c {
	case Gzip:
		w = gzip.NewWriter(&buf)
	case XZ:
		w, err = xz.NewWriter(&buf)
	case Zstd:
		w, err = zstd.NewWriter(&buf)
	default:
		return data
	}

	require.NoError(t, err)

	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func sysrootEntries() []entry {
	return []entry{
		{name: "usr/", typeflag: tar.TypeDir},
		{name: "usr/lib/x86_64-linux-gnu/libc.so.6", body: "elf", typeflag: tar.TypeReg},
		{name: "usr/lib/x86_64-linux-gnu/libc.so", linkname: "/lib/x86_64-linux-gnu/libc.so.6", typeflag: tar.TypeSymlink},
		{name: "usr/lib/libc-copy.so.6", linkname: "usr/lib/x86_64-linux-gnu/libc.so.6", typeflag: tar.TypeLink},
	}
}

// TestTar_ExtractAllCompressions extracts the same tree from every supported format.
func TestTar_ExtractAllCompressions(t *testing.T) {
	t.Parallel()

	raw := buildTar(t, sysrootEntries())

	for _, c := range []Compression{None, Gzip, XZ, Zstd} {
		dest := t.TempDir()

		require.NoError(t, Tar{}.Extract(context.Background(), bytes.NewReader(compress(t, c, raw)), dest))

		data, err := os.ReadFile(filepath.Join(dest, "usr/lib/x86_64-linux-gnu/libc.so.6"))
		require.NoError(t, err)
		require.Equal(t, "elf", string(data))

		link, err := os.Readlink(filepath.Join(dest, "usr/lib/x86_64-linux-gnu/libc.so"))
		require.NoError(t, err)
		require.Equal(t, "/lib/x86_64-linux-gnu/libc.so.6", link)

		data, err = os.ReadFile(filepath.Join(dest, "usr/lib/libc-copy.so.6"))
		require.NoError(t, err)
		require.Equal(t, "elf", string(data))
	}
}

// TestExtract_RejectsTraversal refuses entries outside the destination.
func TestExtract_RejectsTraversal(t *testing.T) {
	t.Parallel()

	raw := buildTar(t, []entry{{name: "../evil", body: "x", typeflag: tar.TypeReg}})
	dest := filepath.Join(t.TempDir(), "root")

	err := Extract(context.Background(), bytes.NewReader(raw), None, dest)
	require.ErrorIs(t, err, ErrUnsafePath)
	require.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil"))
}

// TestExtract_RejectsWritesThroughSymlinks refuses entries whose parent
// directory is a link pointing outside the destination.
func TestExtract_RejectsWritesThroughSymlinks(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.Mkdir(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("host"), 0o600))

	cases := map[string][]entry{
		"regular file below link": {
			{name: "lib", linkname: outside, typeflag: tar.TypeSymlink},
			{name: "lib/evil.txt", body: "pwned", typeflag: tar.TypeReg},
		},
		"directory below link": {
			{name: "lib", linkname: outside, typeflag: tar.TypeSymlink},
			{name: "lib/evil/", typeflag: tar.TypeDir},
		},
		"symlink below link": {
			{name: "lib", linkname: outside, typeflag: tar.TypeSymlink},
			{name: "lib/evil.txt", linkname: "/etc/passwd", typeflag: tar.TypeSymlink},
		},
		"hard link source below link": {
			{name: "lib", linkname: outside, typeflag: tar.TypeSymlink},
			{name: "copy", linkname: "lib/secret", typeflag: tar.TypeLink},
		},
		"dangling relative link": {
			{name: "lib", linkname: "../outside/missing", typeflag: tar.TypeSymlink},
			{name: "lib/evil.txt", body: "pwned", typeflag: tar.TypeReg},
		},
	}

	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			dest := filepath.Join(base, "dest-"+filepath.Base(t.Name()))

			err := Extract(context.Background(), bytes.NewReader(buildTar(t, entries)), None, dest)
			require.ErrorIs(t, err, ErrUnsafePath)
			require.NoFileExists(t, filepath.Join(outside, "evil.txt"))
			require.NoDirExists(t, filepath.Join(outside, "evil"))
			require.NoFileExists(t, filepath.Join(dest, "copy"))
		})
	}

	data, err := os.ReadFile(filepath.Join(outside, "secret"))
	require.NoError(t, err)
	require.Equal(t, "host", string(data))
}

// TestExtract_FileReplacesSymlink writes a regular entry in place of an
// earlier link with the same name instead of following it.
func TestExtract_FileReplacesSymlink(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	victim := filepath.Join(base, "victim")
	require.NoError(t, os.WriteFile(victim, []byte("host"), 0o600))

	dest := filepath.Join(base, "dest")
	raw := buildTar(t, []entry{
		{name: "libfoo.so", linkname: victim, typeflag: tar.TypeSymlink},
		{name: "libfoo.so", body: "elf", typeflag: tar.TypeReg},
	})

	require.NoError(t, Extract(context.Background(), bytes.NewReader(raw), None, dest))

	data, err := os.ReadFile(victim)
	require.NoError(t, err)
	require.Equal(t, "host", string(data))

	info, err := os.Lstat(filepath.Join(dest, "libfoo.so"))
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())
}

// TestExtractFile reads the archive from disk.
func TestExtractFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sysroot.tar.xz")
	require.NoError(t, os.WriteFile(path, compress(t, XZ, buildTar(t, sysrootEntries())), 0o600))

	dest := filepath.Join(dir, "out")
	require.NoError(t, ExtractFile(context.Background(), Tar{}, path, dest))
	require.FileExists(t, filepath.Join(dest, "usr/lib/x86_64-linux-gnu/libc.so.6"))
}

// TestFromName maps file names to compressions.
func TestFromName(t *testing.T) {
	t.Parallel()

	cases := map[string]Compression{
		"x86_64-linux-gnu-gcc-10.5.0.tar.gz":   Gzip,
		"debian_bullseye_amd64_sysroot.tar.xz": XZ,
		"root.tar.zst":                         Zstd,
		"root.tar":                             None,
	}
	for name, want := range cases {
		got, err := FromName(name)
		require.NoError(t, err)
		require.Equal(t, want, got, name)
	}

	_, err := FromName("root.zip")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
