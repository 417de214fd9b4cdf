package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestLog(t *testing.T, kv KV) *LogStore {
	t.Helper()
	s := NewLogStore(kv, DefaultDedupWindow)
	s.now = func() time.Time { return testNow }
	return s
}

func record(videoID string, watched time.Time) WatchRecord {
	dur := 90
	return WatchRecord{
		VideoID:         videoID,
		URL:             "https://www.youtube.com/watch?v=" + videoID,
		Title:           "Title " + videoID,
		ChannelTitle:    "Channel",
		DurationSeconds: &dur,
		Profile:         "Default",
		WatchedAt:       FormatTime(watched),
	}
}

func TestAppend_DiscardsRecentDuplicate(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		s := newTestLog(t, kv)

		ok, err := s.Append(ctx, record("v1", testNow.Add(-2*time.Minute)))
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.Append(ctx, record("v1", testNow))
		require.NoError(t, err)
		assert.False(t, ok)

		log, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, log, 1)
	})
}

func TestAppend_AcceptsAfterWindow(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		s := newTestLog(t, kv)

		_, err := s.Append(ctx, record("v1", testNow.Add(-10*time.Minute)))
		require.NoError(t, err)

		ok, err := s.Append(ctx, record("v1", testNow))
		require.NoError(t, err)
		assert.True(t, ok)

		log, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, log, 2)
	})
}

func TestAppend_WindowBoundaryIsInclusive(t *testing.T) {
	s := newTestLog(t, openTestSQLite(t))
	ctx := context.Background()

	_, err := s.Append(ctx, record("v1", testNow.Add(-DefaultDedupWindow)))
	require.NoError(t, err)

	ok, err := s.Append(ctx, record("v1", testNow))
	require.NoError(t, err)
	assert.False(t, ok, "a record exactly at now-5m is still a duplicate")
}

func TestAppend_WindowAnchoredAtAppendTime(t *testing.T) {
	s := newTestLog(t, openTestSQLite(t))
	ctx := context.Background()

	_, err := s.Append(ctx, record("v1", testNow.Add(-1*time.Minute)))
	require.NoError(t, err)

	// The candidate claims to be an hour newer, but the check compares
	// existing records against the store's clock.
	ok, err := s.Append(ctx, record("v1", testNow.Add(time.Hour)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppend_DifferentVideosAccepted(t *testing.T) {
	s := newTestLog(t, openTestSQLite(t))
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		ok, err := s.Append(ctx, record(id, testNow))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	log, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "a", log[0].VideoID)
	assert.Equal(t, "c", log[2].VideoID, "insertion order is preserved")
}

func TestAppend_UnparseableTimestampIsNotDuplicate(t *testing.T) {
	s := newTestLog(t, openTestSQLite(t))
	ctx := context.Background()

	bad := record("v1", testNow)
	bad.WatchedAt = "yesterday-ish"
	_, err := s.Append(ctx, bad)
	require.NoError(t, err)

	ok, err := s.Append(ctx, record("v1", testNow))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAppend_PreservesNullDuration(t *testing.T) {
	s := newTestLog(t, openTestSQLite(t))
	ctx := context.Background()

	rec := record("v1", testNow)
	rec.DurationSeconds = nil
	_, err := s.Append(ctx, rec)
	require.NoError(t, err)

	log, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Nil(t, log[0].DurationSeconds)
}

func TestAppend_CorruptLogIsError(t *testing.T) {
	kv := openTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, KeyWatchLog, []byte(`{not json`)))

	s := newTestLog(t, kv)
	_, err := s.Append(ctx, record("v1", testNow))
	assert.Error(t, err)

	raw, _, err := kv.Get(ctx, KeyWatchLog)
	require.NoError(t, err)
	assert.Equal(t, `{not json`, string(raw), "failed append must not touch the stored log")
}

func TestAppend_ConcurrentSameVideoStoresOne(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		s := newTestLog(t, kv)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Append(ctx, record("same", testNow))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		log, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, log, 1)
	})
}

func TestAppend_ConcurrentDistinctVideosAllStored(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		s := newTestLog(t, kv)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Append(ctx, record(fmt.Sprintf("v%02d", i), testNow))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		log, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, log, 20)
	})
}

func TestClear_ThenReadAllIsEmpty(t *testing.T) {
	backends(t, func(t *testing.T, kv KV) {
		ctx := context.Background()
		s := newTestLog(t, kv)

		_, err := s.Append(ctx, record("v1", testNow))
		require.NoError(t, err)

		require.NoError(t, s.Clear(ctx))
		log, err := s.ReadAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, log)
		assert.Empty(t, log)

		// Clearing twice is harmless.
		require.NoError(t, s.Clear(ctx))
		log, err = s.ReadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, log)
	})
}

func TestReadAll_MissingKeyIsEmpty(t *testing.T) {
	s := newTestLog(t, openTestFile(t))
	log, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.Empty(t, log)
}

func TestReadAll_JSONFieldNames(t *testing.T) {
	kv := openTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, KeyWatchLog, []byte(`[{
		"videoId": "abc", "url": "https://youtu.be/abc", "title": "T",
		"description": "D", "durationSeconds": null, "channelTitle": "C",
		"profile": "Default", "watchedAt": "2026-03-14T11:00:00.000Z"
	}]`)))

	log, err := newTestLog(t, kv).ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "abc", log[0].VideoID)
	assert.Equal(t, "C", log[0].ChannelTitle)
	assert.Nil(t, log[0].DurationSeconds)

	watched, err := log[0].WatchedTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC), watched)
}

func TestStats(t *testing.T) {
	s := newTestLog(t, openTestSQLite(t))
	ctx := context.Background()

	a := record("a", testNow.Add(-time.Hour))
	a.ChannelTitle = "Alpha"
	b := record("b", testNow.Add(-30*time.Minute))
	b.ChannelTitle = "Beta"
	c := record("a", testNow)
	c.ChannelTitle = "Alpha"
	for _, r := range []WatchRecord{a, b} {
		_, err := s.Append(ctx, r)
		require.NoError(t, err)
	}
	s.now = func() time.Time { return testNow.Add(time.Hour) }
	_, err := s.Append(ctx, c)
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 2, stats.UniqueVideos)
	assert.Equal(t, testNow.Add(-time.Hour), stats.Oldest)
	assert.Equal(t, testNow, stats.Newest)
	require.Len(t, stats.TopChannels, 2)
	assert.Equal(t, ChannelCount{Channel: "Alpha", Count: 2}, stats.TopChannels[0])
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, 3, 14, 12, 0, 5, 123456789, time.FixedZone("X", 3600))
	assert.Equal(t, "2026-03-14T11:00:05.123Z", FormatTime(ts))
}
