package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"syndicate/internal/asset"
	"syndicate/internal/branch"
	"syndicate/internal/callback"
	"syndicate/internal/config"
	"syndicate/internal/entitlement"
	"syndicate/internal/executions"
	"syndicate/internal/logging"
	"syndicate/internal/notifications"
	"syndicate/internal/objectstore"
	"syndicate/internal/report"
	"syndicate/internal/services"
	"syndicate/internal/tasks"
	"syndicate/internal/transcode"
)

const defaultExecutionTimeout = 60 * time.Minute

// Options wires the engine's collaborators.
type Options struct {
	Config     *config.Config
	Store      *executions.Store
	Objects    objectstore.Store
	Transcoder transcode.Client
	Callbacks  *callback.Registry
	Resolver   entitlement.Resolver
	Notifier   notifications.Service
	Sink       report.Sink
	Logger     *slog.Logger
	// Timeout overrides the configured execution deadline when positive.
	Timeout time.Duration
}

// Engine runs workflow executions.
type Engine struct {
	cfg       *config.Config
	store     *executions.Store
	resolver  entitlement.Resolver
	notifier  notifications.Service
	sink      report.Sink
	callbacks *callback.Registry
	branches  map[string]*branch.Scheduler
	timeout   time.Duration
	logger    *slog.Logger
}

// NewEngine builds the per-partner branch schedulers and validates the
// wiring. The watermark image is loaded once at construction.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Config == nil || opts.Store == nil || opts.Objects == nil || opts.Resolver == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new engine", "config, store, objects, and resolver are required", nil)
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(opts.Config)
	}
	if opts.Sink == nil {
		opts.Sink = report.NewLogSink(opts.Logger)
	}

	var watermark []byte
	if path := strings.TrimSpace(opts.Config.Storage.WatermarkPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "new engine", "read watermark image", err)
		}
		watermark = data
	}

	branches := make(map[string]*branch.Scheduler, len(opts.Config.Partners))
	for _, partner := range opts.Config.Partners {
		executor, err := tasks.NewExecutor(tasks.Options{
			Store:        opts.Objects,
			Transcoder:   opts.Transcoder,
			Callbacks:    opts.Callbacks,
			OutputBucket: partner.OutputBucket,
			Watermark:    watermark,
			Logger:       opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		branches[partner.Name] = branch.NewScheduler(executor, opts.Logger)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(opts.Config.Workflow.ExecutionTimeoutMinutes) * time.Minute
	}
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}

	return &Engine{
		cfg:       opts.Config,
		store:     opts.Store,
		resolver:  opts.Resolver,
		notifier:  opts.Notifier,
		sink:      opts.Sink,
		callbacks: opts.Callbacks,
		branches:  branches,
		timeout:   timeout,
		logger:    logging.NewComponentLogger(opts.Logger, "workflow"),
	}, nil
}

// Execute runs the full workflow for one asset. A repeated trigger while an
// execution is already running returns the running execution unchanged.
func (e *Engine) Execute(ctx context.Context, a asset.Asset) (*executions.Execution, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	execution, err := e.store.Create(ctx, a.ID)
	if errors.Is(err, executions.ErrActiveExists) && execution != nil {
		e.logger.Info("execution already active, trigger ignored",
			logging.String(logging.FieldEventType, "execution_deduplicated"),
			logging.String(logging.FieldAssetID, a.ID),
			logging.String(logging.FieldExecutionID, execution.ID),
		)
		return execution, nil
	}
	if err != nil {
		return nil, err
	}

	ctx = services.WithExecutionID(ctx, execution.ID)
	ctx = services.WithAssetID(ctx, a.ID)
	logger := e.logger.With(logging.Args(logging.ContextFields(ctx)...)...)

	logger.Info("execution started", logging.String(logging.FieldEventType, "execution_started"))
	if err := e.notifier.NotifyExecutionStarted(ctx, a.ID); err != nil {
		logger.Warn("start notification failed", logging.Error(err))
	}

	started := time.Now()
	final, runErr := e.run(ctx, execution, a)
	if runErr != nil {
		e.fail(execution, a, runErr, logger)
		return nil, runErr
	}

	encoded, err := final.Encode()
	if err != nil {
		e.fail(execution, a, err, logger)
		return nil, err
	}
	if err := e.store.MarkCompleted(context.Background(), execution.ID, encoded); err != nil {
		return nil, err
	}

	if err := e.sink.Deliver(ctx, final); err != nil {
		logger.Warn("report delivery failed", logging.Error(err))
	}

	var processed, ignored, failed int
	for _, result := range final.Results {
		switch result.Status {
		case asset.StatusProcessOK:
			processed++
		case asset.StatusIgnored:
			ignored++
		case asset.StatusError:
			failed++
		}
	}
	if err := e.notifier.NotifyExecutionCompleted(ctx, a.ID, processed, ignored, failed, time.Since(started)); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}

	logger.Info("execution completed",
		logging.String(logging.FieldEventType, "execution_completed"),
		logging.Int("processed", processed),
		logging.Int("ignored", ignored),
		logging.Int("failed", failed),
		logging.Duration("elapsed", time.Since(started)),
	)
	return e.store.GetByID(context.Background(), execution.ID)
}

// run drives the deadline-bound portion of the execution.
func (e *Engine) run(ctx context.Context, execution *executions.Execution, a asset.Asset) (report.FinalReport, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	decision, err := e.resolver.Resolve(a)
	if err != nil {
		return report.FinalReport{}, err
	}

	partners := e.resolver.Partners()
	results := make([]asset.PartnerResult, len(partners))
	errs := make([]error, len(partners))

	var wg sync.WaitGroup
	for i, partner := range partners {
		scheduler, ok := e.branches[partner]
		if !ok {
			return report.FinalReport{}, services.Wrap(services.ErrConfiguration, "workflow", "run", "no branch configured for partner "+partner, nil)
		}
		wg.Add(1)
		go func(i int, partner string, scheduler *branch.Scheduler) {
			defer wg.Done()
			branchCtx := services.WithPartner(ctx, partner)
			results[i], errs[i] = scheduler.Run(branchCtx, partner, a, decision[partner])
		}(i, partner, scheduler)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			if deadlineExceeded(ctx, err) {
				return report.FinalReport{}, services.Wrap(services.ErrTimeout, "workflow", "run",
					fmt.Sprintf("execution exceeded %s deadline", e.timeout), err)
			}
			return report.FinalReport{}, err
		}
	}

	return report.Aggregate(execution.ID, a.ID, partners, results)
}

// fail marks the execution failed and abandons any callbacks still pending
// so a late transcoder event cannot resolve into a dead execution.
func (e *Engine) fail(execution *executions.Execution, a asset.Asset, cause error, logger *slog.Logger) {
	logger.Error("execution failed",
		logging.String(logging.FieldEventType, "execution_failed"),
		logging.Error(cause),
	)

	if e.callbacks != nil {
		for _, pending := range e.callbacks.Snapshot() {
			if pending.AssetID == a.ID {
				e.callbacks.Cancel(pending.Token)
			}
		}
	}

	if err := e.store.MarkFailed(context.Background(), execution.ID, cause.Error()); err != nil {
		logger.Error("mark failed errored", logging.Error(err))
	}
	if err := e.notifier.NotifyExecutionFailed(context.Background(), a.ID, cause.Error()); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
}

func deadlineExceeded(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded)
}
