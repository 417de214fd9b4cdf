package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/runnerr0/watchlog/internal/storage"
)

// DefaultProfile labels records when no profile has been configured.
const DefaultProfile = "Default"

// Settings are the user-editable options.
type Settings struct {
	APIKey  string `json:"apiKey"`
	Profile string `json:"profile"`
	Enabled bool   `json:"enabled"`
}

// Defaults returns the settings used for unset keys.
func Defaults() Settings {
	return Settings{APIKey: "", Profile: DefaultProfile, Enabled: true}
}

// Normalize trims text fields and restores the default profile when blank.
func (s Settings) Normalize() Settings {
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.Profile = strings.TrimSpace(s.Profile)
	if s.Profile == "" {
		s.Profile = DefaultProfile
	}
	return s
}

// Store reads and writes settings as individual keys.
type Store struct {
	kv storage.KV
}

// NewStore returns a Store over kv.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Load returns the current settings, falling back to Defaults per key. All
// keys come from one snapshot, so a concurrent Save is seen whole or not at all.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	out := Defaults()
	fields := []struct {
		key string
		dst any
	}{
		{storage.KeyAPIKey, &out.APIKey},
		{storage.KeyProfile, &out.Profile},
		{storage.KeyEnabled, &out.Enabled},
	}

	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	values, err := s.kv.GetMany(ctx, keys)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	for _, f := range fields {
		data, ok := values[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(data, f.dst); err != nil {
			return Settings{}, fmt.Errorf("decode setting %s: %w", f.key, err)
		}
	}

	return out, nil
}

// Save normalizes and persists all settings in one write.
func (s *Store) Save(ctx context.Context, in Settings) (Settings, error) {
	in = in.Normalize()
	fields := []struct {
		key string
		val any
	}{
		{storage.KeyAPIKey, in.APIKey},
		{storage.KeyProfile, in.Profile},
		{storage.KeyEnabled, in.Enabled},
	}

	values := make(map[string][]byte, len(fields))
	for _, f := range fields {
		data, err := json.Marshal(f.val)
		if err != nil {
			return Settings{}, fmt.Errorf("encode setting %s: %w", f.key, err)
		}
		values[f.key] = data
	}
	if err := s.kv.SetMany(ctx, values); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}

	return in, nil
}

// MaskedKey returns the API key with all but its last four characters hidden.
func (s Settings) MaskedKey() string {
	if len(s.APIKey) <= 4 {
		return strings.Repeat("*", len(s.APIKey))
	}
	return strings.Repeat("*", len(s.APIKey)-4) + s.APIKey[len(s.APIKey)-4:]
}
