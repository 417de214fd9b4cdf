package daemon

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runnerr0/watchlog/internal/export"
	"github.com/runnerr0/watchlog/internal/pipeline"
	"github.com/runnerr0/watchlog/internal/settings"
	"github.com/runnerr0/watchlog/internal/storage"
)

// Handler serves the extension-facing HTTP API.
type Handler struct {
	orch      *pipeline.Orchestrator
	log       *storage.LogStore
	settings  *settings.Store
	logger    *slog.Logger
	authToken string
	maxBody   int64
	now       func() time.Time
}

// Options configures a Handler.
type Options struct {
	AuthToken      string
	MaxRequestSize int64
}

// NewHandler builds the API handler.
func NewHandler(orch *pipeline.Orchestrator, log *storage.LogStore, s *settings.Store, logger *slog.Logger, opts Options) *Handler {
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = 64 << 10
	}
	return &Handler{
		orch:      orch,
		log:       log,
		settings:  s,
		logger:    logger,
		authToken: opts.AuthToken,
		maxBody:   opts.MaxRequestSize,
		now:       time.Now,
	}
}

// Router returns the chi router for the daemon.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/status", h.status)

	r.Group(func(r chi.Router) {
		r.Use(h.requireToken)

		r.Post("/navigation", h.navigation)
		r.Delete("/tabs/{tabID}", h.tabClosed)

		r.Get("/log", h.listLog)
		r.Get("/log.csv", h.exportLog)
		r.Delete("/log", h.clearLog)

		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.putSettings)
	})

	return r
}

type statusResponse struct {
	Status      string `json:"status"`
	Records     int    `json:"records"`
	TrackedTabs int    `json:"trackedTabs"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	log, err := h.log.ReadAll(r.Context())
	if err != nil {
		h.returnErr(w, r, http.StatusInternalServerError, "could not read watch log", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Records: len(log), TrackedTabs: h.orch.TrackedTabs()})
}

type navigationResponse struct {
	Outcome pipeline.Outcome `json:"outcome"`
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	var ev pipeline.NavigationEvent
	if err := h.decode(w, r, &ev, false); err != nil {
		h.returnErr(w, r, http.StatusBadRequest, "invalid navigation event", err)
		return
	}
	if strings.TrimSpace(ev.URL) == "" {
		h.returnErr(w, r, http.StatusBadRequest, "invalid navigation event", errors.New("url is required"))
		return
	}

	// A client that hangs up must not abort a watch already being logged.
	outcome := h.orch.Handle(context.WithoutCancel(r.Context()), ev)
	writeJSON(w, http.StatusAccepted, navigationResponse{Outcome: outcome})
}

func (h *Handler) tabClosed(w http.ResponseWriter, r *http.Request) {
	tabID, err := strconv.Atoi(chi.URLParam(r, "tabID"))
	if err != nil {
		h.returnErr(w, r, http.StatusBadRequest, "invalid tab id", err)
		return
	}
	h.orch.TabClosed(tabID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listLog(w http.ResponseWriter, r *http.Request) {
	log, err := h.log.ReadAll(r.Context())
	if err != nil {
		h.returnErr(w, r, http.StatusInternalServerError, "could not read watch log", err)
		return
	}
	rows := export.Filter(export.NewestFirst(log), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) exportLog(w http.ResponseWriter, r *http.Request) {
	log, err := h.log.ReadAll(r.Context())
	if err != nil {
		h.returnErr(w, r, http.StatusInternalServerError, "could not read watch log", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, log); err != nil {
		h.logger.Error("failed to write csv export", slog.Any("error", err))
	}
}

func (h *Handler) clearLog(w http.ResponseWriter, r *http.Request) {
	if err := h.log.Clear(r.Context()); err != nil {
		h.returnErr(w, r, http.StatusInternalServerError, "could not clear watch log", err)
		return
	}
	h.logger.Info("watch log cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Load(r.Context())
	if err != nil {
		h.returnErr(w, r, http.StatusInternalServerError, "could not load settings", err)
		return
	}
	s.APIKey = s.MaskedKey()
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var in settings.Settings
	if err := h.decode(w, r, &in, true); err != nil {
		h.returnErr(w, r, http.StatusBadRequest, "invalid settings", err)
		return
	}
	current, err := h.settings.Load(r.Context())
	if err != nil {
		h.returnErr(w, r, http.StatusInternalServerError, "could not load settings", err)
		return
	}
	// GET hands out a masked key; sending it back unchanged keeps the real one.
	if current.APIKey != "" && in.APIKey == current.MaskedKey() {
		in.APIKey = current.APIKey
	}

	saved, err := h.settings.Save(r.Context(), in)
	if err != nil {
		h.returnErr(w, r, http.StatusInternalServerError, "could not save settings", err)
		return
	}
	saved.APIKey = saved.MaskedKey()
	writeJSON(w, http.StatusOK, saved)
}

// decode reads a size-limited JSON body. Strict decoding rejects unknown
// fields; navigation events are lenient since browsers attach extra details.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(dst)
}

func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authToken != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.authToken)) != 1 {
				h.returnErr(w, r, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid bearer token"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *Handler) returnErr(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	h.logger.Warn(message,
		slog.Any("error", err),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	writeJSON(w, status, struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}{Message: message, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
