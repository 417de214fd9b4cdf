package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/runnerr0/watchlog/internal/config"
	"github.com/runnerr0/watchlog/internal/debounce"
	"github.com/runnerr0/watchlog/internal/logging"
	"github.com/runnerr0/watchlog/internal/pipeline"
	"github.com/runnerr0/watchlog/internal/settings"
	"github.com/runnerr0/watchlog/internal/storage"
	"github.com/runnerr0/watchlog/internal/youtube"
)

// app bundles everything a command needs once config and storage are open.
type app struct {
	cfg      *config.Config
	kv       storage.KV
	log      *storage.LogStore
	settings *settings.Store
	logger   *slog.Logger
	closers  []io.Closer
}

// sizedKV is implemented by both storage backends.
type sizedKV interface {
	Path() string
	SizeBytes() int64
}

// loadConfig resolves the config file and applies global overrides.
// Priority: --data-dir flag > config file > defaults.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if globals != nil && globals.Config != "" {
		cfg, err = config.LoadOrCreateAt(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if globals != nil && globals.DataDir != "" {
		cfg.Storage.Path = globals.DataDir
	}
	if globals != nil && globals.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// openKV opens the configured storage backend.
func openKV(cfg *config.Config) (storage.KV, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case config.BackendFile:
		dir, err := cfg.DataDir()
		if err != nil {
			return nil, err
		}
		return storage.OpenFile(dir)
	default:
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, err
		}
		return storage.OpenSQLite(path)
	}
}

// openApp loads config, storage and logging for a command.
func openApp(globals *GlobalFlags) (*app, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}
	return openAppWithConfig(cfg)
}

func openAppWithConfig(cfg *config.Config) (*app, error) {
	logFile, err := cfg.LogFile()
	if err != nil {
		return nil, err
	}
	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   logFile,
	})
	if err != nil {
		return nil, err
	}

	kv, err := openKV(cfg)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := newApp(cfg, kv, logger)
	a.closers = append(a.closers, logCloser)
	return a, nil
}

// newApp wires stores over an already open kv (used directly by tests).
func newApp(cfg *config.Config, kv storage.KV, logger *slog.Logger) *app {
	return &app{
		cfg:      cfg,
		kv:       kv,
		log:      storage.NewLogStore(kv, cfg.DedupWindow()),
		settings: settings.NewStore(kv),
		logger:   logger,
		closers:  []io.Closer{kv},
	}
}

// orchestrator builds a pipeline using the real metadata fetcher.
func (a *app) orchestrator() *pipeline.Orchestrator {
	return pipeline.New(
		debounce.New(a.cfg.DebounceWindow()),
		a.settings,
		youtube.NewFetcher(a.cfg.YouTube.Endpoint, a.cfg.FetchTimeout()),
		a.log,
		a.logger,
	)
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws rows with a rounded box style.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// localTime renders a watchedAt value in local time, or as-is when unparseable.
func localTime(rec storage.WatchRecord) string {
	t, err := rec.WatchedTime()
	if err != nil {
		return rec.WatchedAt
	}
	return t.Local().Format("2006-01-02 15:04")
}

// checkDaemon attempts an HTTP GET to the daemon status endpoint.
// Returns true if the daemon responds within 1 second.
func checkDaemon(addr string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + addr + "/status")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int with comma separators.
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
