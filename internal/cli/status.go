package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/runnerr0/watchlog/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version        string             `json:"version"`
	Backend        string             `json:"backend"`
	StoragePath    string             `json:"storage_path"`
	StorageBytes   int64              `json:"storage_size_bytes"`
	TotalRecords   int                `json:"total_records"`
	UniqueVideos   int                `json:"unique_videos"`
	OldestWatch    string             `json:"oldest_watch,omitempty"`
	NewestWatch    string             `json:"newest_watch,omitempty"`
	TopChannels    []channelCountJSON `json:"top_channels"`
	Profile        string             `json:"profile"`
	Enabled        bool               `json:"enabled"`
	APIKeySet      bool               `json:"api_key_set"`
	DaemonAddr     string             `json:"daemon_addr"`
	DaemonRunning  bool               `json:"daemon_running"`
	DedupWindow    string             `json:"dedup_window"`
	DebounceWindow string             `json:"debounce_window"`
}

type channelCountJSON struct {
	Channel string `json:"channel"`
	Count   int    `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(a, checkDaemon(a.cfg.ListenAddr()))
}

// executeWithApp reports on a provided app (for testing).
func (c *StatusCommand) executeWithApp(a *app, daemonRunning bool) error {
	ctx := context.Background()

	stats, err := a.log.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	s, err := a.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	out := statusJSON{
		Version:        c.version,
		Backend:        a.cfg.Storage.Backend,
		TotalRecords:   stats.TotalRecords,
		UniqueVideos:   stats.UniqueVideos,
		TopChannels:    make([]channelCountJSON, len(stats.TopChannels)),
		Profile:        s.Profile,
		Enabled:        s.Enabled,
		APIKeySet:      s.APIKey != "",
		DaemonAddr:     a.cfg.ListenAddr(),
		DaemonRunning:  daemonRunning,
		DedupWindow:    a.cfg.DedupWindow().String(),
		DebounceWindow: a.cfg.DebounceWindow().String(),
	}
	if sized, ok := a.kv.(sizedKV); ok {
		out.StoragePath = sized.Path()
		out.StorageBytes = sized.SizeBytes()
	}
	if stats.TotalRecords > 0 && !stats.Oldest.IsZero() {
		out.OldestWatch = stats.Oldest.UTC().Format(time.RFC3339)
		out.NewestWatch = stats.Newest.UTC().Format(time.RFC3339)
	}
	for i, ch := range stats.TopChannels {
		out.TopChannels[i] = channelCountJSON{Channel: ch.Channel, Count: ch.Count}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	return c.printHuman(out, stats)
}

func (c *StatusCommand) printHuman(out statusJSON, stats *storage.Stats) error {
	fmt.Println("watchlog Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Storage:       %s (%s, %s)\n", out.StoragePath, out.Backend, formatBytes(out.StorageBytes))
	fmt.Printf("Watches:       %s\n", formatNumber(out.TotalRecords))
	fmt.Printf("Videos:        %s\n", formatNumber(out.UniqueVideos))

	if out.OldestWatch != "" {
		fmt.Printf("Oldest:        %s\n", stats.Oldest.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.Newest.Local().Format("2006-01-02"))
	}

	if len(stats.TopChannels) > 0 {
		fmt.Println()
		fmt.Println("Top Channels:")
		rows := make([][]string, 0, len(stats.TopChannels))
		for _, ch := range stats.TopChannels {
			rows = append(rows, []string{truncate(ch.Channel, 40), strconv.Itoa(ch.Count)})
		}
		fmt.Println(renderTable([]string{"Channel", "Watches"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	fmt.Println()
	fmt.Printf("Profile:       %s\n", out.Profile)
	if out.Enabled {
		fmt.Println("Logging:       on")
	} else {
		fmt.Println("Logging:       off")
	}
	if out.APIKeySet {
		fmt.Println("API key:       set")
	} else {
		fmt.Println("API key:       not set")
	}
	fmt.Printf("Dedup window:  %s\n", out.DedupWindow)

	fmt.Println()
	if out.DaemonRunning {
		fmt.Printf("Daemon:        running on %s\n", out.DaemonAddr)
	} else {
		fmt.Printf("Daemon:        not running (%s)\n", out.DaemonAddr)
	}

	return nil
}
