package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/watchlog/internal/config"
	"github.com/runnerr0/watchlog/internal/logging"
	"github.com/runnerr0/watchlog/internal/settings"
	"github.com/runnerr0/watchlog/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// newTestApp opens a SQLite-backed app in a temp dir. The YouTube endpoint
// points at a fake server answering every id with fixed metadata.
func newTestApp(t *testing.T) *app {
	t.Helper()

	yt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"items":[{"id":%q,"snippet":{"title":"Title %s","description":"About %s","channelTitle":"Chan"},"contentDetails":{"duration":"PT1H2M3S"}}]}`, id, id, id)
	}))
	t.Cleanup(yt.Close)

	cfg := config.DefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.YouTube.Endpoint = yt.URL + "/"

	path, err := cfg.SQLitePath()
	require.NoError(t, err)
	kv, err := storage.OpenSQLite(path)
	require.NoError(t, err)

	a := newApp(cfg, kv, logging.NewNop())
	t.Cleanup(func() { a.Close() })
	return a
}

func setAPIKey(t *testing.T, a *app, key string) {
	t.Helper()
	s, err := a.settings.Load(context.Background())
	require.NoError(t, err)
	s.APIKey = key
	_, err = a.settings.Save(context.Background(), s)
	require.NoError(t, err)
}

func intPtr(n int) *int { return &n }

// seedRecord appends a record watched ago before now.
func seedRecord(t *testing.T, a *app, videoID, title, channel string, ago time.Duration) {
	t.Helper()
	_, err := a.log.Append(context.Background(), storage.WatchRecord{
		VideoID:         videoID,
		URL:             "https://www.youtube.com/watch?v=" + videoID,
		Title:           title,
		Description:     "desc " + videoID,
		DurationSeconds: intPtr(125),
		ChannelTitle:    channel,
		Profile:         settings.DefaultProfile,
		WatchedAt:       storage.FormatTime(time.Now().Add(-ago)),
	})
	require.NoError(t, err)
}

// writeTestConfig writes a config file whose storage lives under dir.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("storage:\n  path: %q\nlogging:\n  file: \"\"\n", filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return cfgPath
}
