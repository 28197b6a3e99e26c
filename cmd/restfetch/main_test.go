package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/transfer"
)

func newFileServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/reports/today.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k" || r.Header.Get("X-Trace") != "abc" {
			http.Error(w, "denied", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("secret"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("RESTFETCH_LOGGING_FORMAT", "json")
	var stdout, stderr bytes.Buffer
	code := run(t.Context(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_DownloadsIntoLocalStorage(t *testing.T) {
	payload := bytes.Repeat([]byte("a,b,c\n"), 20000)
	srv := newFileServer(t, payload)
	dir := t.TempDir()

	code, stdout, stderr := runCLI(t, "--storage", "local", "--base-path", dir,
		"-o", "data/out.csv", "--chunk-size", "4096", srv.URL+"/reports/today.csv")

	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "data/out.csv\n", stdout)
	got, err := os.ReadFile(filepath.Join(dir, "data", "out.csv"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Contains(t, stderr, `"message":"download complete"`)
	assert.Contains(t, stderr, `"total_bytes":`+strconv.Itoa(len(payload)))
}

func TestRun_DefaultOutputIsLastSegment(t *testing.T) {
	srv := newFileServer(t, []byte("x"))
	dir := t.TempDir()

	code, stdout, stderr := runCLI(t, "--base-path", dir, srv.URL+"/reports/today.csv")

	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "today.csv\n", stdout)
	assert.FileExists(t, filepath.Join(dir, "today.csv"))
}

func TestRun_HeadersAndToken(t *testing.T) {
	srv := newFileServer(t, nil)
	dir := t.TempDir()

	code, _, stderr := runCLI(t, "--base-path", dir, "--token", "t0k",
		"-H", "x-trace: abc", "-o", "p.txt", srv.URL+"/private")
	require.Equal(t, exitOK, code, stderr)

	got, err := os.ReadFile(filepath.Join(dir, "p.txt"))
	require.NoError(t, err)
	assert.Equal(t, "secret", string(got))
}

func TestRun_HTTPErrorLeavesNoObject(t *testing.T) {
	srv := newFileServer(t, nil)
	dir := t.TempDir()

	code, _, stderr := runCLI(t, "--base-path", dir, "-o", "p.txt", srv.URL+"/private")

	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "download failed")
	assert.NoFileExists(t, filepath.Join(dir, "p.txt"))
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no target", nil, exitUsage},
		{"two targets", []string{"http://a", "http://b"}, exitUsage},
		{"unknown flag", []string{"--nope", "http://a"}, exitUsage},
		{"relative target without base url", []string{"/file"}, exitUsage},
		{"malformed header", []string{"-H", "no-colon", "http://localhost/x"}, exitUsage},
		{"unknown provider", []string{"--storage", "ftp", "http://localhost/x"}, exitUsage},
		{"help", []string{"--help"}, exitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, append([]string{"--base-path", t.TempDir()}, tt.args...)...)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(stdout, "restfetch "), stdout)
}

func TestRun_ConfigFile(t *testing.T) {
	srv := newFileServer(t, []byte("from config"))
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "restfetch.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
name: restfetch
http:
  base_url: `+srv.URL+`
storage:
  provider: local
  base_path: `+dir+`
`), 0o600))

	code, stdout, stderr := runCLI(t, "-c", cfgPath, "reports/today.csv")

	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "today.csv\n", stdout)
	got, err := os.ReadFile(filepath.Join(dir, "today.csv"))
	require.NoError(t, err)
	assert.Equal(t, "from config", string(got))
}

func TestProgressLogger_Throttles(t *testing.T) {
	var buf bytes.Buffer
	pl := &progressLogger{
		log:   logger.NewWithWriter(&buf, &logger.Config{Level: "info", Format: "json"}, "test"),
		every: time.Hour,
	}
	total := int64(300)

	pl.observe(transfer.Progress{TotalBytes: &total, TransferredBytes: 100})
	pl.observe(transfer.Progress{TotalBytes: &total, TransferredBytes: 200})
	pl.observe(transfer.Progress{TotalBytes: &total, TransferredBytes: 300, IsCompleted: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"percent":"33.3"`)
	assert.Contains(t, lines[1], "download complete")
}

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"accept: text/csv", "X-Id:7"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Accept": "text/csv", "X-Id": "7"}, h)

	_, err = parseHeaders([]string{": empty"})
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		target, explicit string
		hasBase          bool
		want             string
		wantErr          bool
	}{
		{target: "https://h/a/b.bin", want: "b.bin"},
		{target: "https://h/", want: "index"},
		{target: "https://h/a/b.bin", explicit: "x/y", want: "x/y"},
		{target: "b/c.txt", hasBase: true, want: "c.txt"},
		{target: "b/c.txt", wantErr: true},
		{target: "ftp://h/a", wantErr: true},
	}
	for _, tt := range tests {
		got, err := outputPath(tt.target, tt.explicit, tt.hasBase)
		if tt.wantErr {
			assert.Error(t, err, tt.target)
			continue
		}
		require.NoError(t, err, tt.target)
		assert.Equal(t, tt.want, got, tt.target)
	}
}
