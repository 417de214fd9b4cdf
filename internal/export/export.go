package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/watchlog/internal/storage"
)

// CSVHeader lists the exported columns in order.
var CSVHeader = []string{"watchedAt", "profile", "videoId", "title", "channelTitle", "durationSeconds", "url", "description"}

// CSV renders records with every field quoted, one record per line. The
// output has no trailing newline.
func CSV(records []storage.WatchRecord) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(CSVHeader, ","))

	for _, r := range records {
		duration := ""
		if r.DurationSeconds != nil {
			duration = strconv.Itoa(*r.DurationSeconds)
		}
		fields := []string{r.WatchedAt, r.Profile, r.VideoID, r.Title, r.ChannelTitle, duration, r.URL, r.Description}
		for i, f := range fields {
			fields[i] = quote(f)
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	return strings.Join(lines, "\n")
}

// WriteCSV writes CSV(records) to w.
func WriteCSV(w io.Writer, records []storage.WatchRecord) error {
	_, err := io.WriteString(w, CSV(records))
	return err
}

// FileName returns the download name for an export taken at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("youtube_watch_log_%d.csv", t.UnixMilli())
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Filter keeps records whose title or channel contains query, ignoring
// case. An empty query keeps everything.
func Filter(records []storage.WatchRecord, query string) []storage.WatchRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]storage.WatchRecord, 0, len(records))
	for _, r := range records {
		if q == "" ||
			strings.Contains(strings.ToLower(r.Title), q) ||
			strings.Contains(strings.ToLower(r.ChannelTitle), q) {
			out = append(out, r)
		}
	}
	return out
}

// NewestFirst returns a copy of records sorted by watchedAt descending.
// Records with unparseable timestamps sort last; ties keep log order.
func NewestFirst(records []storage.WatchRecord) []storage.WatchRecord {
	type keyed struct {
		rec storage.WatchRecord
		at  time.Time
	}
	items := make([]keyed, len(records))
	for i, r := range records {
		items[i].rec = r
		items[i].at, _ = r.WatchedTime()
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].at.After(items[b].at)
	})

	out := make([]storage.WatchRecord, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}

// FormatDuration renders seconds as "1h 2m 3s", "2m 0s" or "45s". Nil is "".
func FormatDuration(seconds *int) string {
	if seconds == nil {
		return ""
	}
	sec := *seconds
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 || h > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", s))
	return strings.Join(parts, " ")
}
