package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultDedupWindow is how long a video stays "recently logged".
const DefaultDedupWindow = 5 * time.Minute

// LogStore is the persisted, append-only watch log. The whole log is read
// and rewritten on every mutation.
type LogStore struct {
	kv     KV
	window time.Duration
	now    func() time.Time

	// mu covers the read, duplicate check and write of Append.
	mu sync.Mutex
}

// NewLogStore returns a LogStore over kv. A non-positive window falls back
// to DefaultDedupWindow.
func NewLogStore(kv KV, window time.Duration) *LogStore {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &LogStore{kv: kv, window: window, now: time.Now}
}

// Append adds rec unless a record for the same video was watched within the
// dedup window before now. It reports whether rec was stored; a discarded
// duplicate is not an error.
func (s *LogStore) Append(ctx context.Context, rec WatchRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appended := false
	err := s.kv.Update(ctx, KeyWatchLog, func(current []byte, ok bool) ([]byte, bool, error) {
		log, err := decodeLog(current, ok)
		if err != nil {
			return nil, false, err
		}

		// Anchored at append time, not at rec.WatchedAt.
		cutoff := s.now().Add(-s.window)
		for _, existing := range log {
			if existing.VideoID != rec.VideoID {
				continue
			}
			watched, err := existing.WatchedTime()
			if err != nil {
				continue
			}
			if !watched.Before(cutoff) {
				return nil, false, nil
			}
		}

		next, err := json.Marshal(append(log, rec))
		if err != nil {
			return nil, false, fmt.Errorf("encode watch log: %w", err)
		}
		appended = true
		return next, true, nil
	})
	if err != nil {
		return false, fmt.Errorf("append watch record: %w", err)
	}
	return appended, nil
}

// ReadAll returns the log in append order. It never returns a nil slice.
func (s *LogStore) ReadAll(ctx context.Context) ([]WatchRecord, error) {
	data, ok, err := s.kv.Get(ctx, KeyWatchLog)
	if err != nil {
		return nil, fmt.Errorf("read watch log: %w", err)
	}
	return decodeLog(data, ok)
}

// Clear replaces the log with an empty one.
func (s *LogStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, KeyWatchLog, []byte("[]")); err != nil {
		return fmt.Errorf("clear watch log: %w", err)
	}
	return nil
}

// Stats summarizes the current log.
func (s *LogStore) Stats(ctx context.Context) (*Stats, error) {
	log, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalRecords: len(log)}
	videos := make(map[string]struct{})
	channels := make(map[string]int)

	for _, r := range log {
		videos[r.VideoID] = struct{}{}
		if r.ChannelTitle != "" {
			channels[r.ChannelTitle]++
		}
		t, err := r.WatchedTime()
		if err != nil {
			continue
		}
		if stats.Oldest.IsZero() || t.Before(stats.Oldest) {
			stats.Oldest = t
		}
		if t.After(stats.Newest) {
			stats.Newest = t
		}
	}
	stats.UniqueVideos = len(videos)

	for ch, n := range channels {
		stats.TopChannels = append(stats.TopChannels, ChannelCount{Channel: ch, Count: n})
	}
	sort.Slice(stats.TopChannels, func(i, j int) bool {
		a, b := stats.TopChannels[i], stats.TopChannels[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Channel < b.Channel
	})
	if len(stats.TopChannels) > 10 {
		stats.TopChannels = stats.TopChannels[:10]
	}

	return stats, nil
}

func decodeLog(data []byte, ok bool) ([]WatchRecord, error) {
	log := []WatchRecord{}
	if !ok || len(data) == 0 {
		return log, nil
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode watch log: %w", err)
	}
	// "null" decodes to a nil slice.
	if log == nil {
		log = []WatchRecord{}
	}
	return log, nil
}
