package settings

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/watchlog/internal/storage"
)

func newTestStore(t *testing.T) (*Store, storage.KV) {
	t.Helper()
	kv, err := storage.OpenFile(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return NewStore(kv), kv
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Settings{APIKey: "", Profile: "Default", Enabled: true}, got)
}

func TestLoad_SeededSQLite(t *testing.T) {
	kv, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "w.db"))
	require.NoError(t, err)
	defer kv.Close()

	got, err := NewStore(kv).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestSave_NormalizesAndPersists(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, Settings{APIKey: "  AIza-key  ", Profile: "   ", Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, Settings{APIKey: "AIza-key", Profile: "Default", Enabled: false}, saved)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestLoad_PartialKeys(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, storage.KeyProfile, []byte(`"Kids"`)))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Kids", got.Profile)
	assert.True(t, got.Enabled)
	assert.Empty(t, got.APIKey)
}

func TestLoad_BadValueIsError(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, storage.KeyEnabled, []byte(`"yes"`)))

	_, err := s.Load(ctx)
	assert.Error(t, err)
}

func TestSave_LoadNeverSeesMixedSettings(t *testing.T) {
	sqliteKV, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "w.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteKV.Close() })
	fileKV, err := storage.OpenFile(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { fileKV.Close() })

	for name, kv := range map[string]storage.KV{"sqlite": sqliteKV, "file": fileKV} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(kv)
			home := Settings{APIKey: "home-key", Profile: "Home", Enabled: true}
			work := Settings{APIKey: "work-key", Profile: "Work", Enabled: false}
			_, err := s.Save(ctx, home)
			require.NoError(t, err)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					next := work
					if i%2 == 1 {
						next = home
					}
					_, err := s.Save(ctx, next)
					assert.NoError(t, err)
				}
			}()

			for i := 0; i < 100; i++ {
				got, err := s.Load(ctx)
				require.NoError(t, err)
				assert.Contains(t, []Settings{home, work}, got)
			}
			wg.Wait()
		})
	}
}

func TestMaskedKey(t *testing.T) {
	assert.Equal(t, "", Settings{}.MaskedKey())
	assert.Equal(t, "***", Settings{APIKey: "abc"}.MaskedKey())
	assert.Equal(t, "*****6789", Settings{APIKey: "123456789"}.MaskedKey())
}
