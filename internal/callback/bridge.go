package callback

import (
	"context"
	"errors"
	"log/slog"

	"syndicate/internal/asset"
	"syndicate/internal/logging"
	"syndicate/internal/services"
	"syndicate/internal/transcode"
)

// Bridge converts external transcoder status events into registry operations
// against the suspended video task they address.
type Bridge struct {
	registry *Registry
	logger   *slog.Logger
}

// NewBridge wires a bridge to its registry.
func NewBridge(registry *Registry, logger *slog.Logger) *Bridge {
	return &Bridge{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "callback"),
	}
}

// Pending reports how many suspended tasks are awaiting events.
func (b *Bridge) Pending() int {
	return b.registry.Pending()
}

// HandleEvent routes one status event. Late events addressing a token with no
// pending task are logged and dropped; they must never corrupt state or fail
// the caller. Unknown status values are ignored.
func (b *Bridge) HandleEvent(ctx context.Context, event transcode.JobEvent) error {
	logger := logging.WithContext(ctx, b.logger)

	token, err := TokenFromMetadata(event.UserMetadata)
	if err != nil {
		return err
	}

	switch event.Status {
	case transcode.StatusComplete:
		result, err := b.resultFromEvent(event)
		if err != nil {
			return err
		}
		if err := b.registry.Resolve(token, result); err != nil {
			return b.dropIfNotPending(logger, event, err)
		}
		logger.Info("video task resolved",
			logging.String(logging.FieldEventType, "callback_resolved"),
			logging.String("job_id", event.JobID),
			logging.String("output_key", result.Key),
		)
	case transcode.StatusProgressing, transcode.StatusStatusUpdate:
		if err := b.registry.Heartbeat(token); err != nil {
			return b.dropIfNotPending(logger, event, err)
		}
	case transcode.StatusError, transcode.StatusCanceled:
		message := event.ErrorMessage
		if message == "" {
			message = "job " + string(event.Status)
		}
		if err := b.registry.Fail(token, message); err != nil {
			return b.dropIfNotPending(logger, event, err)
		}
		logger.Warn("video task failed",
			logging.String(logging.FieldEventType, "callback_failed"),
			logging.String("job_id", event.JobID),
			logging.String("error_message", message),
		)
	default:
		logger.Debug("ignoring unknown transcoder status",
			logging.String("status", string(event.Status)),
			logging.String("job_id", event.JobID),
		)
	}
	return nil
}

// resultFromEvent derives the video step result from a terminal-success
// event. The transcoder appends a rendition suffix to its outputs, so the
// real key comes from the reported output path with the destination bucket
// prefix stripped.
func (b *Bridge) resultFromEvent(event transcode.JobEvent) (asset.ProcessingStepResult, error) {
	assetID := event.UserMetadata[MetadataAssetID]
	bucket := event.UserMetadata[MetadataBucket]
	if assetID == "" || bucket == "" {
		return asset.ProcessingStepResult{}, services.Wrap(services.ErrValidation, "callback", "resolve",
			"event metadata is missing AssetId or Bucket", nil)
	}
	if len(event.OutputPaths) == 0 {
		return asset.ProcessingStepResult{}, services.Wrap(services.ErrValidation, "callback", "resolve",
			"complete event carries no output paths", nil)
	}
	key, ok := transcode.StripBucketPrefix(event.OutputPaths[0], bucket)
	if !ok {
		return asset.ProcessingStepResult{}, services.Wrap(services.ErrValidation, "callback", "resolve",
			"output path does not match the destination bucket", nil)
	}
	return asset.ProcessingStepResult{
		AssetID: assetID,
		Bucket:  bucket,
		Key:     key,
		Type:    asset.StepVideo,
	}, nil
}

func (b *Bridge) dropIfNotPending(logger *slog.Logger, event transcode.JobEvent, err error) error {
	if errors.Is(err, ErrNotPending) {
		logger.Info("dropping event for task no longer pending",
			logging.String(logging.FieldEventType, "callback_dropped"),
			logging.String("status", string(event.Status)),
			logging.String("job_id", event.JobID),
		)
		return nil
	}
	return err
}
