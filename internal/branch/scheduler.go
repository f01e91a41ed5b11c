// Package branch runs the fixed per-partner task graph: image, metadata, and
// video proceed in parallel, and postprocessing runs only after all three
// succeed. A branch failure is folded into the partner's result rather than
// tearing down sibling branches.
package branch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"syndicate/internal/asset"
	"syndicate/internal/callback"
	"syndicate/internal/logging"
	"syndicate/internal/services"
	"syndicate/internal/tasks"
)

// TaskRunner is the unit-of-work surface a branch drives. *tasks.Executor
// satisfies it.
type TaskRunner interface {
	ProcessImage(ctx context.Context, req tasks.Request) (asset.ProcessingStepResult, error)
	ProcessMetadata(ctx context.Context, req tasks.Request) (asset.ProcessingStepResult, error)
	ProcessVideo(ctx context.Context, req tasks.Request) (<-chan callback.Outcome, error)
	Postprocess(ctx context.Context, provider string, results []asset.ProcessingStepResult) (asset.PartnerResult, error)
}

// Scheduler fans one asset out across a partner's task graph.
type Scheduler struct {
	runner TaskRunner
	logger *slog.Logger
}

func NewScheduler(runner TaskRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "branch"),
	}
}

// slot indices keep the step results in a stable order regardless of which
// goroutine finishes first.
const (
	slotImage = iota
	slotMetadata
	slotVideo
	slotCount
)

// Run executes the branch for one partner. A partner without entitlement is
// reported IGNORED without dispatching any work. Task failures produce an
// ERROR result; only context expiry surfaces as an error to the caller.
func (s *Scheduler) Run(ctx context.Context, provider string, a asset.Asset, entitled bool) (asset.PartnerResult, error) {
	logger := s.logger.With(
		logging.String(logging.FieldPartner, provider),
		logging.String(logging.FieldAssetID, a.ID),
	)

	if !entitled {
		logger.Info("partner skipped", logging.String(logging.FieldEventType, "branch_ignored"))
		return asset.PartnerResult{Provider: provider, Status: asset.StatusIgnored}, nil
	}

	// A task failure cancels the sibling tasks so the branch does not sit
	// on the suspended video wait for the remainder of the deadline.
	branchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		results [slotCount]asset.ProcessingStepResult
		errs    [slotCount]error
	)

	run := func(slot int, task func(context.Context) (asset.ProcessingStepResult, error)) {
		defer wg.Done()
		results[slot], errs[slot] = task(branchCtx)
		if errs[slot] != nil {
			cancel()
		}
	}

	wg.Add(slotCount)
	go run(slotImage, func(ctx context.Context) (asset.ProcessingStepResult, error) {
		return s.runner.ProcessImage(ctx, tasks.Request{
			Bucket:  a.Image.Bucket,
			Key:     a.Image.Key,
			AssetID: a.ID,
		})
	})
	go run(slotMetadata, func(ctx context.Context) (asset.ProcessingStepResult, error) {
		return s.runner.ProcessMetadata(ctx, tasks.Request{
			Bucket:  a.Metadata.Bucket,
			Key:     a.Metadata.Key,
			AssetID: a.ID,
		})
	})
	go run(slotVideo, func(ctx context.Context) (asset.ProcessingStepResult, error) {
		return s.runVideo(ctx, a)
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return asset.PartnerResult{}, services.Wrap(services.ErrTimeout, "branch", "run", "branch interrupted before completion", err)
	}

	if err := firstFailure(errs[:]); err != nil {
		logger.Error("branch task failed",
			logging.String(logging.FieldEventType, "branch_task_failed"),
			logging.Error(err),
		)
		return asset.PartnerResult{
			Provider: provider,
			Status:   asset.StatusError,
			Error:    err.Error(),
		}, nil
	}

	result, err := s.runner.Postprocess(ctx, provider, results[:])
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return asset.PartnerResult{}, services.Wrap(services.ErrTimeout, "branch", "postprocess", "branch interrupted before completion", ctxErr)
		}
		logger.Error("postprocess failed",
			logging.String(logging.FieldEventType, "branch_postprocess_failed"),
			logging.Error(err),
		)
		return asset.PartnerResult{
			Provider: provider,
			Status:   asset.StatusError,
			Error:    err.Error(),
		}, nil
	}

	logger.Info("branch completed", logging.String(logging.FieldEventType, "branch_completed"))
	return result, nil
}

// firstFailure prefers a genuine task error over the cancellation noise the
// sibling shutdown produces in the other slots.
func firstFailure(errs []error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if canceled == nil {
				canceled = err
			}
			continue
		}
		return err
	}
	return canceled
}

// runVideo dispatches the asynchronous transcode and blocks until the
// callback bridge delivers an outcome or the execution deadline expires.
func (s *Scheduler) runVideo(ctx context.Context, a asset.Asset) (asset.ProcessingStepResult, error) {
	done, err := s.runner.ProcessVideo(ctx, tasks.Request{
		Bucket:  a.Video.Bucket,
		Key:     a.Video.Key,
		AssetID: a.ID,
	})
	if err != nil {
		return asset.ProcessingStepResult{}, err
	}

	select {
	case outcome := <-done:
		if outcome.Err != nil {
			return asset.ProcessingStepResult{}, outcome.Err
		}
		return outcome.Result, nil
	case <-ctx.Done():
		return asset.ProcessingStepResult{}, services.Wrap(services.ErrTimeout, "branch", "video wait", "transcode did not complete in time", ctx.Err())
	}
}
