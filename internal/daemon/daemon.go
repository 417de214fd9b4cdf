package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another daemon holds the data
// directory's lock.
var ErrAlreadyRunning = errors.New("another watchlog daemon is already running")

const shutdownTimeout = 5 * time.Second

// Daemon runs the ingest HTTP service. Only one daemon may serve a data
// directory at a time.
type Daemon struct {
	addr     string
	handler  http.Handler
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
}

// New prepares a daemon listening on addr and locking dataDir.
func New(addr, dataDir string, handler http.Handler, logger *slog.Logger) *Daemon {
	lockPath := filepath.Join(dataDir, "watchlogd.lock")
	return &Daemon{
		addr:     addr,
		handler:  handler,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", slog.Any("error", err))
		}
	}()

	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.addr, err)
	}
	return d.serve(ctx, ln)
}

func (d *Daemon) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	d.logger.Info("watchlog daemon started", slog.String("addr", ln.Addr().String()), slog.String("lock", d.lockPath))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	d.logger.Info("watchlog daemon stopped")
	return nil
}
