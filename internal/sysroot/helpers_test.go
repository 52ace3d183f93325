package sysroot

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/oshokin/linux-deps/internal/config"
	"github.com/oshokin/linux-deps/internal/fetch"
)

const (
	testRepository = "acme/build-agent"
	testRelease    = "v20250407"
	testVersion    = "35.1.2"
)

// tarball builds an archive containing the given files (path -> content).
func tarball(t *testing.T, files map[string]string, useXZ bool) []byte {
	t.Helper()

	var raw bytes.Buffer

	tw := tar.NewWriter(&raw)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))

		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())

	var out bytes.Buffer

	if useXZ {
		w, err := xz.NewWriter(&out)
		require.NoError(t, err)
		_, err = w.Write(raw.Bytes())
		require.NoError(t, err)
		require.NoError(t, w.Close())

		return out.Bytes()
	}

	w := gzip.NewWriter(&out)
	_, err := w.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return out.Bytes()
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// fakeUpstream serves a GitHub release, its assets, a sysroot manifest and a mirror.
type fakeUpstream struct {
	server *httptest.Server

	mu sync.Mutex
	// assets maps asset names to archive bytes.
	assets map[string][]byte
	// mirror maps digests to tarball bytes.
	mirror map[string][]byte
	// manifest is served at /electron/v<testVersion>/sysroots.json.
	manifest Manifest
	// failures makes the next N release lookups answer 500.
	failures int
	// manifestStatus, when set, is the status every manifest request gets.
	manifestStatus int
	// hits counts requests per path.
	hits map[string]int
	// authorization records the last Authorization header per path.
	authorization map[string]string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()

	f := &fakeUpstream{
		assets:        make(map[string][]byte),
		mirror:        make(map[string][]byte),
		manifest:      make(Manifest),
		hits:          make(map[string]int),
		authorization: make(map[string]string),
	}

	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hits[r.URL.Path]++
	f.authorization[r.URL.Path] = r.Header.Get("Authorization")

	switch {
	case r.URL.Path == fmt.Sprintf("/repos/%s/releases/tags/%s", testRepository, testRelease):
		if f.failures > 0 {
			f.failures--
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		release := fetch.Release{TagName: testRelease}
		for name := range f.assets {
			release.Assets = append(release.Assets, fetch.Asset{Name: name, URL: f.server.URL + "/assets/" + name})
		}

		_ = json.NewEncoder(w).Encode(release)
	case filepath.Dir(r.URL.Path) == "/assets":
		data, ok := f.assets[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write(data)
	case r.URL.Path == "/electron/v"+testVersion+"/sysroots.json":
		if f.manifestStatus != 0 {
			w.WriteHeader(f.manifestStatus)

			return
		}

		_ = json.NewEncoder(w).Encode(f.manifest)
	case filepath.Dir(r.URL.Path) == "/mirror":
		data, ok := f.mirror[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeUpstream) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.hits[path]
}

func (f *fakeUpstream) auth(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.authorization[path]
}

func (f *fakeUpstream) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, hits := range f.hits {
		n += hits
	}

	return n
}

func (f *fakeUpstream) releasePath() string {
	return fmt.Sprintf("/repos/%s/releases/tags/%s", testRepository, testRelease)
}

// testConfig points every source at the fake upstream and every cache at a temp dir.
func testConfig(t *testing.T, f *fakeUpstream, checksums string) *config.Config {
	t.Helper()

	dir := t.TempDir()

	checksumFile := filepath.Join(dir, "sysroot.txt")
	require.NoError(t, os.WriteFile(checksumFile, []byte(checksums), 0o600))

	pinFile := filepath.Join(dir, ".npmrc")
	require.NoError(t, os.WriteFile(pinFile, []byte("disturl=\"https://example.com\"\ntarget=\""+testVersion+"\"\nruntime=\"electron\"\n"), 0o600))

	cfg := config.Default()
	cfg.Progress = false
	cfg.Fetch.Attempts = 3
	cfg.Fetch.Delay = 0
	cfg.Toolchain.APIURL = f.server.URL
	cfg.Toolchain.Repository = testRepository
	cfg.Toolchain.Release = testRelease
	cfg.Toolchain.ChecksumFile = checksumFile
	cfg.Toolchain.CacheDir = filepath.Join(dir, "toolchain")
	cfg.Vendor.PinFile = pinFile
	cfg.Vendor.ManifestURL = f.server.URL + "/electron/v%s/sysroots.json"
	cfg.Vendor.MirrorURL = f.server.URL + "/mirror"
	cfg.Vendor.RootDir = filepath.Join(dir, "vendor")

	require.NoError(t, config.Validate(cfg))

	return cfg
}
