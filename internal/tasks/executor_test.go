package tasks

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"syndicate/internal/asset"
	"syndicate/internal/callback"
	"syndicate/internal/logging"
	"syndicate/internal/objectstore"
	"syndicate/internal/services"
	"syndicate/internal/transcode"
)

type fakeTranscoder struct {
	last transcode.JobRequest
	err  error
}

func (f *fakeTranscoder) Submit(_ context.Context, req transcode.JobRequest) (*transcode.Submission, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &transcode.Submission{JobID: "job-1"}, nil
}

func newExecutor(t *testing.T, store objectstore.Store, client transcode.Client, registry *callback.Registry) *Executor {
	t.Helper()
	executor, err := NewExecutor(Options{
		Store:        store,
		Transcoder:   client,
		Callbacks:    registry,
		OutputBucket: "partner-ace",
		Logger:       logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return executor
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessImageWritesToOutputBucket(t *testing.T) {
	store := objectstore.NewMemory()
	ctx := context.Background()
	if err := store.Put(ctx, "intake", "a/cover.png", encodePNG(t, 32, 32)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	executor := newExecutor(t, store, nil, nil)
	result, err := executor.ProcessImage(ctx, Request{Bucket: "intake", Key: "a/cover.png", AssetID: "a"})
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	if result.Bucket != "partner-ace" || result.Key != "a/cover.png" || result.Type != asset.StepImage {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := store.Get(ctx, "partner-ace", "a/cover.png"); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestProcessImageMissingSource(t *testing.T) {
	executor := newExecutor(t, objectstore.NewMemory(), nil, nil)
	_, err := executor.ProcessImage(context.Background(), Request{Bucket: "intake", Key: "nope.png", AssetID: "a"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessMetadataConvertsAndPlacesUnderAssetFolder(t *testing.T) {
	store := objectstore.NewMemory()
	ctx := context.Background()
	doc := []byte(`{"title":"Example","year":2024}`)
	if err := store.Put(ctx, "intake", "a/metadata.json", doc); err != nil {
		t.Fatalf("seed: %v", err)
	}

	executor := newExecutor(t, store, nil, nil)
	result, err := executor.ProcessMetadata(ctx, Request{Bucket: "intake", Key: "a/metadata.json", AssetID: "a"})
	if err != nil {
		t.Fatalf("ProcessMetadata: %v", err)
	}
	if result.Key != "a/metadata.xml" || result.Type != asset.StepMetadata {
		t.Fatalf("unexpected result: %+v", result)
	}
	content, err := store.Get(ctx, "partner-ace", "a/metadata.xml")
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if !strings.Contains(string(content), "<title>Example</title>") {
		t.Fatalf("serialized output missing title element:\n%s", content)
	}
}

func TestProcessMetadataRejectsMalformedDocument(t *testing.T) {
	store := objectstore.NewMemory()
	ctx := context.Background()
	if err := store.Put(ctx, "intake", "a/metadata.json", []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	executor := newExecutor(t, store, nil, nil)
	_, err := executor.ProcessMetadata(ctx, Request{Bucket: "intake", Key: "a/metadata.json", AssetID: "a"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProcessVideoSubmitsAndSuspends(t *testing.T) {
	registry := callback.NewRegistry(logging.NewNop())
	client := &fakeTranscoder{}
	executor := newExecutor(t, objectstore.NewMemory(), client, registry)

	done, err := executor.ProcessVideo(context.Background(), Request{Bucket: "intake", Key: "a/video.mp4", AssetID: "a"})
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if registry.Pending() != 1 {
		t.Fatalf("expected one pending task, got %d", registry.Pending())
	}
	select {
	case <-done:
		t.Fatal("outcome delivered before any callback")
	default:
	}

	meta := client.last.UserMetadata
	token, err := callback.TokenFromMetadata(meta)
	if err != nil {
		t.Fatalf("token fields not carried: %v", err)
	}
	if meta[callback.MetadataAssetID] != "a" || meta[callback.MetadataBucket] != "partner-ace" {
		t.Fatalf("routing metadata missing: %v", meta)
	}
	if client.last.DestinationBucket != "partner-ace" {
		t.Fatalf("destination bucket = %q", client.last.DestinationBucket)
	}

	result := asset.ProcessingStepResult{AssetID: "a", Bucket: "partner-ace", Key: "a/video_720p.mp4", Type: asset.StepVideo}
	if err := registry.Resolve(token, result); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	outcome := <-done
	if outcome.Err != nil || outcome.Result.Key != "a/video_720p.mp4" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestProcessVideoSubmitFailureCancelsRegistration(t *testing.T) {
	registry := callback.NewRegistry(logging.NewNop())
	client := &fakeTranscoder{err: services.Wrap(services.ErrExternalService, "transcode", "submit", "unavailable", nil)}
	executor := newExecutor(t, objectstore.NewMemory(), client, registry)

	_, err := executor.ProcessVideo(context.Background(), Request{Bucket: "intake", Key: "a/video.mp4", AssetID: "a"})
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if registry.Pending() != 0 {
		t.Fatalf("registration leaked: %d pending", registry.Pending())
	}
}

func TestProcessVideoAbandonedWaitCancelsRegistration(t *testing.T) {
	registry := callback.NewRegistry(logging.NewNop())
	client := &fakeTranscoder{}
	executor := newExecutor(t, objectstore.NewMemory(), client, registry)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := executor.ProcessVideo(ctx, Request{Bucket: "intake", Key: "a/video.mp4", AssetID: "a"})
	if err != nil {
		t.Fatalf("ProcessVideo: %v", err)
	}
	if registry.Pending() != 1 {
		t.Fatalf("expected one pending task, got %d", registry.Pending())
	}

	// A sibling failure or deadline cancels the branch context; the
	// suspended registration must not outlive it.
	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for registry.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registration leaked after context cancel: %d pending", registry.Pending())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPostprocessComputesChecksums(t *testing.T) {
	store := objectstore.NewMemory()
	ctx := context.Background()
	payload := []byte("delivered bytes")
	if err := store.Put(ctx, "partner-ace", "a/cover.png", payload); err != nil {
		t.Fatalf("seed: %v", err)
	}

	executor := newExecutor(t, store, nil, nil)
	result, err := executor.Postprocess(ctx, "ACE", []asset.ProcessingStepResult{
		{AssetID: "a", Bucket: "partner-ace", Key: "a/cover.png", Type: asset.StepImage},
	})
	if err != nil {
		t.Fatalf("Postprocess: %v", err)
	}
	if result.Provider != "ACE" || result.Status != asset.StatusProcessOK {
		t.Fatalf("unexpected result: %+v", result)
	}
	digest := md5.Sum(payload)
	want := hex.EncodeToString(digest[:])
	if len(result.Output.Checksums) != 1 || result.Output.Checksums[0] != want {
		t.Fatalf("checksums = %v, want [%s]", result.Output.Checksums, want)
	}
	if result.Output.Files[0] != "a/cover.png" {
		t.Fatalf("files = %v", result.Output.Files)
	}
}

func TestPostprocessMissingOutputFails(t *testing.T) {
	executor := newExecutor(t, objectstore.NewMemory(), nil, nil)
	_, err := executor.Postprocess(context.Background(), "ACE", []asset.ProcessingStepResult{
		{AssetID: "a", Bucket: "partner-ace", Key: "a/missing.png", Type: asset.StepImage},
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
