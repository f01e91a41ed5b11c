package trigger

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"syndicate/internal/executions"
	"syndicate/internal/logging"
	"syndicate/internal/objectstore"
)

// History answers whether an asset has been seen before. *executions.Store
// satisfies it.
type History interface {
	ListByAsset(ctx context.Context, assetID string) ([]*executions.Execution, error)
}

// Watcher polls the intake bucket for delivery folders that have not been
// processed yet and feeds them through the trigger. It stands in for the
// push-style object notifications a hosted store would emit.
type Watcher struct {
	objects      objectstore.Store
	trigger      *Trigger
	history      History
	intakeBucket string
	interval     time.Duration
	logger       *slog.Logger
}

func NewWatcher(objects objectstore.Store, trig *Trigger, history History, intakeBucket string, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watcher{
		objects:      objects,
		trigger:      trig,
		history:      history,
		intakeBucket: intakeBucket,
		interval:     interval,
		logger:       logging.NewComponentLogger(logger, "watcher"),
	}
}

// Run polls until the context is canceled. Each sweep is best-effort;
// failures are logged and retried on the next tick.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.Sweep(ctx); err != nil {
			w.logger.Error("intake sweep failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass over the intake bucket, starting executions for
// complete delivery folders with no prior execution history.
func (w *Watcher) Sweep(ctx context.Context) error {
	keys, err := w.objects.List(ctx, w.intakeBucket, "")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if path.Base(key) != ManifestName {
			continue
		}
		folder := path.Dir(strings.Trim(key, "/"))
		if folder == "." || folder == "" {
			continue
		}

		prior, err := w.history.ListByAsset(ctx, folder)
		if err != nil {
			return err
		}
		if len(prior) > 0 {
			continue
		}

		if _, err := w.trigger.HandleObjectCreated(ctx, key); err != nil {
			w.logger.Error("trigger failed for delivery",
				logging.String(logging.FieldAssetID, folder),
				logging.Error(err),
			)
		}
	}
	return nil
}
