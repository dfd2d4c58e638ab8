package main

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSha256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bin")
	data := []byte("wfgraph test data")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := sha256File(path)
	require.NoError(t, err)

	h := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(h[:]), got)
}

func TestSha256File_NotFound(t *testing.T) {
	_, err := sha256File("/nonexistent/file")
	assert.Error(t, err)
}

func TestParseChecksumFile(t *testing.T) {
	const sum = "abc123def456abc123def456abc123def456abc123def456abc123def456abcd"
	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{
			name:  "two-space format",
			input: sum + "  mermaid-ascii_Linux_arm64.tar.gz\n" + strings.Repeat("f", 64) + "  checksums.txt\n",
			want: map[string]string{
				"mermaid-ascii_Linux_arm64.tar.gz": sum,
				"checksums.txt":                    strings.Repeat("f", 64),
			},
		},
		{name: "empty", input: "", want: map[string]string{}},
		{name: "blank lines", input: "\n  \n\n", want: map[string]string{}},
		{name: "no filename", input: sum + "\n", want: map[string]string{}},
		{name: "short hash", input: "abc123  file.tar.gz\n", want: map[string]string{}},
		{name: "not hex", input: strings.Repeat("z", 64) + "  file.tar.gz\n", want: map[string]string{}},
		{
			name:  "binary mode and uppercase",
			input: strings.ToUpper(sum) + " *file.tar.gz\n",
			want:  map[string]string{"file.tar.gz": sum},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseChecksumFile(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDownloadToTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/asset" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()
	dir := t.TempDir()

	path, err := downloadToTempFile(srv.URL+"/asset", dir, srv.Client())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = downloadToTempFile(srv.URL+"/missing", dir, srv.Client())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "failed download leaves no temp file")
}
