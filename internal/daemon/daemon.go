package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"syndicate/internal/callback"
	"syndicate/internal/config"
	"syndicate/internal/executions"
	"syndicate/internal/logging"
	"syndicate/internal/transcode"
	"syndicate/internal/trigger"
)

// Daemon owns the background loops of a running syndicate instance.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *executions.Store
	watcher *trigger.Watcher
	bridge  *callback.Bridge
	events  transcode.EventSource

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	DatabasePath     string
	LockFilePath     string
	PendingCallbacks int
}

// New constructs a daemon with initialized dependencies. The event source
// may be nil when no transcoder endpoint is configured; the video task then
// fails at submission rather than waiting forever.
func New(cfg *config.Config, store *executions.Store, watcher *trigger.Watcher, bridge *callback.Bridge, events transcode.EventSource, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || watcher == nil || bridge == nil {
		return nil, errors.New("daemon requires config, store, watcher, and bridge")
	}

	lockPath := filepath.Join(cfg.Storage.StateDir, "syndicated.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		watcher:  watcher,
		bridge:   bridge,
		events:   events,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the background loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another syndicate daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.watcher.Run(runCtx)
	}()

	if d.events != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.pumpEvents(runCtx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("syndicate daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("syndicate daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for the status command.
func (d *Daemon) Status() Status {
	return Status{
		Running:          d.running.Load(),
		DatabasePath:     d.store.Path(),
		LockFilePath:     d.lockPath,
		PendingCallbacks: d.bridge.Pending(),
	}
}

// pumpEvents polls the transcoder's event queue and feeds each event to the
// callback bridge. Fetch failures are retried on the next tick; per-event
// handling failures are logged and do not stop the pump.
func (d *Daemon) pumpEvents(ctx context.Context) {
	interval := time.Duration(d.cfg.Workflow.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		batch, err := d.events.Events(ctx)
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Error("transcoder event fetch failed", logging.Error(err))
			}
			continue
		}
		for _, event := range batch {
			if err := d.bridge.HandleEvent(ctx, event); err != nil {
				d.logger.Error("callback event rejected",
					logging.String("job_id", event.JobID),
					logging.String("status", string(event.Status)),
					logging.Error(err),
				)
			}
		}
	}
}
