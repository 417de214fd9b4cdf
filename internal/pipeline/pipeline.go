package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/runnerr0/watchlog/internal/debounce"
	"github.com/runnerr0/watchlog/internal/settings"
	"github.com/runnerr0/watchlog/internal/storage"
	"github.com/runnerr0/watchlog/internal/videoid"
	"github.com/runnerr0/watchlog/internal/youtube"
)

// NavigationEvent is a top-level or subframe navigation reported by the
// browser.
type NavigationEvent struct {
	URL     string `json:"url"`
	TabID   int    `json:"tabId"`
	FrameID int    `json:"frameId"`
	// TimestampMs is the browser's navigation time. Records are stamped
	// with the orchestrator's clock, not this value.
	TimestampMs int64 `json:"timestampMs,omitempty"`
}

// Outcome says where an event left the pipeline.
type Outcome string

const (
	OutcomeIgnoredFrame  Outcome = "ignored_frame"
	OutcomeNotVideo      Outcome = "not_video"
	OutcomeDebounced     Outcome = "debounced"
	OutcomeSettingsError Outcome = "settings_error"
	OutcomeDisabled      Outcome = "disabled"
	OutcomeMissingAPIKey Outcome = "missing_api_key"
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeStoreFailed   Outcome = "store_failed"
	OutcomeLogged        Outcome = "logged"
)

// ErrMissingAPIKey is wrapped by ConfigError when no API key is configured.
var ErrMissingAPIKey = errors.New("no api key set")

// ConfigError reports settings that keep the pipeline from running.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Err.Error() + "; set one with `watchlog settings --api-key`"
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MetadataFetcher looks up one video.
type MetadataFetcher interface {
	Fetch(ctx context.Context, id videoid.ID, apiKey string) (youtube.Metadata, error)
}

// SettingsReader supplies the current settings.
type SettingsReader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// LogAppender persists watch records.
type LogAppender interface {
	Append(ctx context.Context, rec storage.WatchRecord) (bool, error)
}

// Orchestrator runs navigation events through extraction, debouncing,
// metadata lookup and the log. It is safe for concurrent use.
type Orchestrator struct {
	debouncer *debounce.Debouncer
	settings  SettingsReader
	fetcher   MetadataFetcher
	log       LogAppender
	logger    *slog.Logger
	now       func() time.Time
}

// New wires an Orchestrator.
func New(d *debounce.Debouncer, s SettingsReader, f MetadataFetcher, l LogAppender, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		debouncer: d,
		settings:  s,
		fetcher:   f,
		log:       l,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle processes one event. Failures are logged and reported as an
// Outcome; nothing is retried.
func (o *Orchestrator) Handle(ctx context.Context, ev NavigationEvent) Outcome {
	if ev.FrameID != 0 {
		return OutcomeIgnoredFrame
	}

	id, ok := videoid.Extract(ev.URL)
	if !ok {
		return OutcomeNotVideo
	}

	logger := o.logger.With(slog.String("video_id", string(id)), slog.Int("tab_id", ev.TabID))

	if !o.debouncer.Admit(ev.TabID, string(id), o.now()) {
		logger.Debug("navigation debounced")
		return OutcomeDebounced
	}

	cfg, err := o.settings.Load(ctx)
	if err != nil {
		logger.Error("failed to read settings", slog.Any("error", err))
		return OutcomeSettingsError
	}
	if !cfg.Enabled {
		return OutcomeDisabled
	}
	if cfg.APIKey == "" {
		logger.Warn("watch not logged", slog.Any("error", &ConfigError{Err: ErrMissingAPIKey}))
		return OutcomeMissingAPIKey
	}

	md, err := o.fetcher.Fetch(ctx, id, cfg.APIKey)
	if err != nil {
		logger.Error("failed to fetch video metadata", slog.Any("error", err))
		return OutcomeFetchFailed
	}

	rec := storage.WatchRecord{
		VideoID:         string(id),
		URL:             ev.URL,
		Title:           md.Title,
		Description:     md.Description,
		DurationSeconds: md.DurationSeconds,
		ChannelTitle:    md.ChannelTitle,
		Profile:         cfg.Profile,
		WatchedAt:       storage.FormatTime(o.now()),
	}

	appended, err := o.log.Append(ctx, rec)
	if err != nil {
		logger.Error("failed to store watch record", slog.Any("error", err))
		return OutcomeStoreFailed
	}
	if !appended {
		logger.Debug("recent duplicate discarded")
		return OutcomeDuplicate
	}

	logger.Info("logged watch",
		slog.String("title", rec.Title),
		slog.String("channel", rec.ChannelTitle),
		slog.String("profile", rec.Profile),
	)
	return OutcomeLogged
}

// TabClosed drops debounce state for tabID.
func (o *Orchestrator) TabClosed(tabID int) {
	o.debouncer.Remove(tabID)
}

// TrackedTabs reports how many tabs hold debounce state.
func (o *Orchestrator) TrackedTabs() int {
	return o.debouncer.Len()
}
