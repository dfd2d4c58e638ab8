package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeBinary = "#!/bin/sh\necho diagram\n"

func tarGz(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "README.md", Mode: 0o644, Size: 2, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o755, Size: int64(len(content)), Typeflag: tar.TypeReg}))
	_, err = tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// releaseServer serves a mermaid-ascii release for linux/386, which has no
// pinned checksum, so the installer must use checksums.txt.
func releaseServer(t *testing.T, checksum string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	archive := tarGz(t, "mermaid-ascii_Linux_i386/mermaid-ascii", fakeBinary)
	if checksum == "" {
		h := sha256.Sum256(archive)
		checksum = hex.EncodeToString(h[:])
	}
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/1.1.0/mermaid-ascii_Linux_i386.tar.gz", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(archive)
	})
	mux.HandleFunc("/1.1.0/checksums.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, checksum+"  mermaid-ascii_Linux_i386.tar.gz\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestInstaller(srv *httptest.Server) *toolInstaller {
	return &toolInstaller{
		client:  srv.Client(),
		baseURL: srv.URL,
		out:     io.Discard,
		goos:    "linux",
		goarch:  "386",
	}
}

func TestInstallMermaidASCII(t *testing.T) {
	srv, hits := releaseServer(t, "")
	binDir := filepath.Join(t.TempDir(), "bin")

	require.NoError(t, newTestInstaller(srv).installMermaidASCII(binDir))

	data, err := os.ReadFile(filepath.Join(binDir, "mermaid-ascii"))
	require.NoError(t, err)
	assert.Equal(t, fakeBinary, string(data))
	info, err := os.Stat(filepath.Join(binDir, "mermaid-ascii"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100, "binary is executable")

	entries, err := os.ReadDir(binDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp download removed")

	// Second run is a no-op.
	require.NoError(t, newTestInstaller(srv).installMermaidASCII(binDir))
	assert.Equal(t, int32(1), hits.Load())

	inst := newTestInstaller(srv)
	inst.force = true
	require.NoError(t, inst.installMermaidASCII(binDir))
	assert.Equal(t, int32(2), hits.Load())
}

func TestInstallMermaidASCII_ChecksumMismatch(t *testing.T) {
	srv, _ := releaseServer(t, "0000000000000000000000000000000000000000000000000000000000000000")
	binDir := filepath.Join(t.TempDir(), "bin")

	err := newTestInstaller(srv).installMermaidASCII(binDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.NoFileExists(t, filepath.Join(binDir, "mermaid-ascii"))
}

func TestInstallMermaidASCII_UnsupportedPlatform(t *testing.T) {
	srv, hits := releaseServer(t, "")
	inst := newTestInstaller(srv)
	inst.goos = "windows"

	err := inst.installMermaidASCII(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported OS")
	assert.Zero(t, hits.Load())
}

func TestMermaidASCIIAssetName(t *testing.T) {
	name, err := mermaidASCIIAssetName("darwin", "arm64")
	require.NoError(t, err)
	assert.Equal(t, "mermaid-ascii_Darwin_arm64.tar.gz", name)
	assert.Contains(t, mermaidASCIIChecksums, name)

	name, err = mermaidASCIIAssetName("linux", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "mermaid-ascii_Linux_x86_64.tar.gz", name)

	_, err = mermaidASCIIAssetName("linux", "riscv64")
	assert.Error(t, err)
}

func TestExtractTarGz_Missing(t *testing.T) {
	archive := tarGz(t, "other-tool", "x")
	err := extractTarGz(bytes.NewReader(archive), t.TempDir(), "mermaid-ascii")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in archive")
}
