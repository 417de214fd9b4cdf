package storage

import (
	"context"
	"fmt"
	"time"
)

// Keys under which the browser-extension era data lives.
const (
	KeyWatchLog = "watchLog"
	KeyAPIKey   = "apiKey"
	KeyProfile  = "profile"
	KeyEnabled  = "enabled"
)

// TimeLayout is the watchedAt format: UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// WatchRecord is one logged viewing of a video.
type WatchRecord struct {
	VideoID         string `json:"videoId"`
	URL             string `json:"url"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationSeconds *int   `json:"durationSeconds"`
	ChannelTitle    string `json:"channelTitle"`
	Profile         string `json:"profile"`
	WatchedAt       string `json:"watchedAt"`
}

// WatchedTime parses WatchedAt.
func (r WatchRecord) WatchedTime() (time.Time, error) {
	return parseTimestamp(r.WatchedAt)
}

// FormatTime renders t as a watchedAt value.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// KV is a whole-value key/value store. Values are opaque JSON documents.
type KV interface {
	// Get returns the value for key; ok is false when the key is unset.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// GetMany reads several keys as one snapshot. Unset keys are omitted.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	// SetMany replaces several keys so readers see all of them or none.
	SetMany(ctx context.Context, values map[string][]byte) error
	// Update runs fn against the current value and stores its result in one
	// atomic step. When fn returns write == false nothing is stored.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

// UpdateFunc computes a replacement value from the current one.
type UpdateFunc func(current []byte, ok bool) (next []byte, write bool, err error)

// Stats summarizes the watch log.
type Stats struct {
	TotalRecords int
	UniqueVideos int
	Oldest       time.Time
	Newest       time.Time
	TopChannels  []ChannelCount
}

// ChannelCount pairs a channel title with its record count.
type ChannelCount struct {
	Channel string
	Count   int
}

// parseTimestamp tries the layouts watchedAt values have been written in.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		TimeLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}
