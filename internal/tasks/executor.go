package tasks

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"syndicate/internal/asset"
	"syndicate/internal/callback"
	"syndicate/internal/imaging"
	"syndicate/internal/logging"
	"syndicate/internal/objectstore"
	"syndicate/internal/services"
	"syndicate/internal/transcode"
	"syndicate/internal/xmlconv"
)

// Request identifies one source object for a sub-task.
type Request struct {
	Bucket  string
	Key     string
	AssetID string
}

// Options configures an Executor for one partner's branch.
type Options struct {
	Store        objectstore.Store
	Transcoder   transcode.Client
	Callbacks    *callback.Registry
	OutputBucket string
	// Watermark holds the decoded-on-demand watermark image composited
	// onto partner images. Empty skips the composite.
	Watermark []byte
	Logger    *slog.Logger
}

// Executor runs the individual units of work within a partner branch. Image,
// Metadata, and Postprocess are synchronous; Video submits to the external
// transcoder and suspends on the callback registry.
type Executor struct {
	store        objectstore.Store
	transcoder   transcode.Client
	callbacks    *callback.Registry
	outputBucket string
	watermark    []byte
	logger       *slog.Logger
}

// NewExecutor validates the wiring and builds an executor.
func NewExecutor(opts Options) (*Executor, error) {
	if opts.Store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "tasks", "new executor", "object store is required", nil)
	}
	if opts.OutputBucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tasks", "new executor", "output bucket is required", nil)
	}
	return &Executor{
		store:        opts.Store,
		transcoder:   opts.Transcoder,
		callbacks:    opts.Callbacks,
		outputBucket: opts.OutputBucket,
		watermark:    opts.Watermark,
		logger:       logging.NewComponentLogger(opts.Logger, "tasks"),
	}, nil
}

// ProcessImage fetches the source image, converts it to greyscale with the
// watermark composited, and writes the JPEG under the same object key in the
// partner's output bucket.
func (e *Executor) ProcessImage(ctx context.Context, req Request) (asset.ProcessingStepResult, error) {
	source, err := e.store.Get(ctx, req.Bucket, req.Key)
	if err != nil {
		return asset.ProcessingStepResult{}, err
	}

	processed, err := imaging.Process(source, e.watermark)
	if err != nil {
		return asset.ProcessingStepResult{}, err
	}

	if err := e.store.Put(ctx, e.outputBucket, req.Key, processed); err != nil {
		return asset.ProcessingStepResult{}, services.Wrap(services.ErrExternalService, "tasks", "image", "write output", err)
	}

	return asset.ProcessingStepResult{
		AssetID: req.AssetID,
		Bucket:  e.outputBucket,
		Key:     req.Key,
		Type:    asset.StepImage,
	}, nil
}

// ProcessMetadata fetches the structured metadata document, converts it to
// the tag-based serialization, and writes it to <assetId>/metadata.xml.
func (e *Executor) ProcessMetadata(ctx context.Context, req Request) (asset.ProcessingStepResult, error) {
	raw, err := e.store.Get(ctx, req.Bucket, req.Key)
	if err != nil {
		return asset.ProcessingStepResult{}, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return asset.ProcessingStepResult{}, services.Wrap(services.ErrValidation, "tasks", "metadata", "source document is not valid JSON", err)
	}

	serialized, err := xmlconv.ToXML(doc)
	if err != nil {
		return asset.ProcessingStepResult{}, err
	}

	destinationKey := req.AssetID + "/metadata.xml"
	if err := e.store.Put(ctx, e.outputBucket, destinationKey, []byte(serialized)); err != nil {
		return asset.ProcessingStepResult{}, services.Wrap(services.ErrExternalService, "tasks", "metadata", "write output", err)
	}

	return asset.ProcessingStepResult{
		AssetID: req.AssetID,
		Bucket:  e.outputBucket,
		Key:     destinationKey,
		Type:    asset.StepMetadata,
	}, nil
}

// ProcessVideo submits the transcode job and suspends. The returned channel
// delivers the step result once the external service reports back through
// the callback bridge; the submission call itself never produces one.
func (e *Executor) ProcessVideo(ctx context.Context, req Request) (<-chan callback.Outcome, error) {
	if e.transcoder == nil || e.callbacks == nil {
		return nil, services.Wrap(services.ErrConfiguration, "tasks", "video", "transcoder and callback registry are required", nil)
	}

	token := callback.NewToken()
	metadata, err := callback.MetadataFields(token)
	if err != nil {
		return nil, err
	}
	metadata[callback.MetadataAssetID] = req.AssetID
	metadata[callback.MetadataBucket] = e.outputBucket
	metadata[callback.MetadataKey] = req.Key

	done, err := e.callbacks.Register(token, req.AssetID)
	if err != nil {
		return nil, err
	}

	submission, err := e.transcoder.Submit(ctx, transcode.JobRequest{
		InputBucket:       req.Bucket,
		InputKey:          req.Key,
		AssetID:           req.AssetID,
		DestinationBucket: e.outputBucket,
		UserMetadata:      metadata,
	})
	if err != nil {
		// The task never suspended; leaving the registration behind would
		// leak a pending entry no event will ever address.
		e.callbacks.Cancel(token)
		return nil, err
	}

	// Once the branch stops waiting (sibling failure, deadline) nothing
	// will ever drain the registration; tie its lifetime to the context.
	go func() {
		<-ctx.Done()
		e.callbacks.Cancel(token)
	}()

	e.logger.Info("video task suspended",
		logging.String(logging.FieldEventType, "video_suspended"),
		logging.String(logging.FieldAssetID, req.AssetID),
		logging.String("job_id", submission.JobID),
	)
	return done, nil
}

// Postprocess fetches every referenced output object, computes its content
// checksum, and folds the step results into the partner's delivery summary.
func (e *Executor) Postprocess(ctx context.Context, provider string, results []asset.ProcessingStepResult) (asset.PartnerResult, error) {
	files := make([]string, 0, len(results))
	checksums := make([]string, 0, len(results))
	for _, step := range results {
		content, err := e.store.Get(ctx, step.Bucket, step.Key)
		if err != nil {
			return asset.PartnerResult{}, err
		}
		digest := md5.Sum(content)
		files = append(files, step.Key)
		checksums = append(checksums, hex.EncodeToString(digest[:]))
	}

	return asset.PartnerResult{
		Provider: provider,
		Status:   asset.StatusProcessOK,
		Output: &asset.PartnerOutput{
			Bucket:    e.outputBucket,
			Files:     files,
			Checksums: checksums,
		},
	}, nil
}
