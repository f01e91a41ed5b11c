package branch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"syndicate/internal/asset"
	"syndicate/internal/callback"
	"syndicate/internal/logging"
	"syndicate/internal/services"
	"syndicate/internal/tasks"
)

type fakeRunner struct {
	mu sync.Mutex

	imageErr    error
	metadataErr error
	videoErr    error
	videoBlocks bool
	videoResult asset.ProcessingStepResult

	imageDelay    time.Duration
	metadataDelay time.Duration
	videoDelay    time.Duration

	imageCalls       int
	metadataCalls    int
	videoCalls       int
	postprocessCalls int
	postprocessSteps []asset.ProcessingStepResult
}

func (f *fakeRunner) ProcessImage(_ context.Context, req tasks.Request) (asset.ProcessingStepResult, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()
	time.Sleep(f.imageDelay)
	if f.imageErr != nil {
		return asset.ProcessingStepResult{}, f.imageErr
	}
	return asset.ProcessingStepResult{AssetID: req.AssetID, Bucket: "out", Key: req.Key, Type: asset.StepImage}, nil
}

func (f *fakeRunner) ProcessMetadata(_ context.Context, req tasks.Request) (asset.ProcessingStepResult, error) {
	f.mu.Lock()
	f.metadataCalls++
	f.mu.Unlock()
	time.Sleep(f.metadataDelay)
	if f.metadataErr != nil {
		return asset.ProcessingStepResult{}, f.metadataErr
	}
	return asset.ProcessingStepResult{AssetID: req.AssetID, Bucket: "out", Key: req.AssetID + "/metadata.xml", Type: asset.StepMetadata}, nil
}

func (f *fakeRunner) ProcessVideo(_ context.Context, req tasks.Request) (<-chan callback.Outcome, error) {
	f.mu.Lock()
	f.videoCalls++
	f.mu.Unlock()
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	done := make(chan callback.Outcome, 1)
	if !f.videoBlocks {
		result := f.videoResult
		if result.AssetID == "" {
			result = asset.ProcessingStepResult{AssetID: req.AssetID, Bucket: "out", Key: req.AssetID + "/video_720p.mp4", Type: asset.StepVideo}
		}
		if f.videoDelay > 0 {
			go func() {
				time.Sleep(f.videoDelay)
				done <- callback.Outcome{Result: result}
			}()
		} else {
			done <- callback.Outcome{Result: result}
		}
	}
	return done, nil
}

func (f *fakeRunner) Postprocess(_ context.Context, provider string, results []asset.ProcessingStepResult) (asset.PartnerResult, error) {
	f.mu.Lock()
	f.postprocessCalls++
	f.postprocessSteps = append([]asset.ProcessingStepResult(nil), results...)
	f.mu.Unlock()
	files := make([]string, 0, len(results))
	for _, step := range results {
		files = append(files, step.Key)
	}
	return asset.PartnerResult{
		Provider: provider,
		Status:   asset.StatusProcessOK,
		Output:   &asset.PartnerOutput{Bucket: "out", Files: files},
	}, nil
}

func testAsset() asset.Asset {
	return asset.Asset{
		ID:       "asset-1",
		Video:    asset.ObjectRef{Bucket: "intake", Key: "asset-1/video.mp4"},
		Image:    asset.ObjectRef{Bucket: "intake", Key: "asset-1/cover.png"},
		Metadata: asset.ObjectRef{Bucket: "intake", Key: "asset-1/metadata.json"},
	}
}

func TestUnentitledPartnerIgnoredWithoutDispatch(t *testing.T) {
	runner := &fakeRunner{}
	scheduler := NewScheduler(runner, logging.NewNop())

	result, err := scheduler.Run(context.Background(), "OtherProvider", testAsset(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != asset.StatusIgnored || result.Provider != "OtherProvider" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if runner.imageCalls+runner.metadataCalls+runner.videoCalls+runner.postprocessCalls != 0 {
		t.Fatal("unentitled branch dispatched work")
	}
}

func TestEntitledBranchRunsAllTasksThenPostprocess(t *testing.T) {
	runner := &fakeRunner{}
	scheduler := NewScheduler(runner, logging.NewNop())

	result, err := scheduler.Run(context.Background(), "ACE", testAsset(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != asset.StatusProcessOK {
		t.Fatalf("status = %s", result.Status)
	}
	if runner.postprocessCalls != 1 {
		t.Fatalf("postprocess calls = %d", runner.postprocessCalls)
	}
	wantOrder := []asset.StepType{asset.StepImage, asset.StepMetadata, asset.StepVideo}
	for i, step := range runner.postprocessSteps {
		if step.Type != wantOrder[i] {
			t.Fatalf("step %d type = %s, want %s", i, step.Type, wantOrder[i])
		}
	}
}

func TestJoinIsCompletionOrderIndependent(t *testing.T) {
	permutations := []fakeRunner{
		{},
		{imageDelay: 30 * time.Millisecond, metadataDelay: 15 * time.Millisecond},
		{videoDelay: 30 * time.Millisecond, imageDelay: 15 * time.Millisecond},
		{metadataDelay: 30 * time.Millisecond, videoDelay: 15 * time.Millisecond},
	}

	var first *asset.PartnerResult
	var firstSteps []asset.ProcessingStepResult
	for i := range permutations {
		runner := &permutations[i]
		scheduler := NewScheduler(runner, logging.NewNop())

		result, err := scheduler.Run(context.Background(), "ACE", testAsset(), true)
		if err != nil {
			t.Fatalf("permutation %d: %v", i, err)
		}
		if first == nil {
			first = &result
			firstSteps = runner.postprocessSteps
			continue
		}
		if !reflect.DeepEqual(result, *first) {
			t.Fatalf("permutation %d result diverged:\n%+v\nwant\n%+v", i, result, *first)
		}
		if !reflect.DeepEqual(runner.postprocessSteps, firstSteps) {
			t.Fatalf("permutation %d postprocess input diverged:\n%+v\nwant\n%+v", i, runner.postprocessSteps, firstSteps)
		}
	}
}

func TestTaskFailureProducesErrorResultAndSkipsPostprocess(t *testing.T) {
	runner := &fakeRunner{
		imageErr:    services.Wrap(services.ErrNotFound, "tasks", "image", "source missing", nil),
		videoBlocks: true,
	}
	scheduler := NewScheduler(runner, logging.NewNop())

	result, err := scheduler.Run(context.Background(), "ACE", testAsset(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != asset.StatusError {
		t.Fatalf("status = %s, want %s", result.Status, asset.StatusError)
	}
	if result.Error == "" {
		t.Fatal("error detail missing from result")
	}
	if runner.postprocessCalls != 0 {
		t.Fatal("postprocess ran after a task failure")
	}
}

func TestVideoFailureProducesErrorResult(t *testing.T) {
	runner := &fakeRunner{
		videoErr: services.Wrap(services.ErrExternalService, "transcode", "submit", "unavailable", nil),
	}
	scheduler := NewScheduler(runner, logging.NewNop())

	result, err := scheduler.Run(context.Background(), "ACE", testAsset(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != asset.StatusError {
		t.Fatalf("status = %s", result.Status)
	}
}

func TestDeadlineDuringVideoWaitReturnsTimeout(t *testing.T) {
	runner := &fakeRunner{videoBlocks: true}
	scheduler := NewScheduler(runner, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := scheduler.Run(ctx, "ACE", testAsset(), true)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
