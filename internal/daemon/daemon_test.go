package daemon

import (
	"context"
	"testing"
	"time"

	"syndicate/internal/asset"
	"syndicate/internal/callback"
	"syndicate/internal/executions"
	"syndicate/internal/logging"
	"syndicate/internal/objectstore"
	"syndicate/internal/testsupport"
	"syndicate/internal/transcode"
	"syndicate/internal/trigger"
)

type noStarter struct{}

func (noStarter) Execute(context.Context, asset.Asset) (*executions.Execution, error) {
	return nil, nil
}

func newTestDaemon(t *testing.T, events transcode.EventSource) *Daemon {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	objects := objectstore.NewMemory()
	registry := callback.NewRegistry(logging.NewNop())
	bridge := callback.NewBridge(registry, logging.NewNop())

	trig := trigger.New(objects, noStarter{}, cfg.Storage.IntakeBucket, logging.NewNop())
	watcher := trigger.NewWatcher(objects, trig, store, cfg.Storage.IntakeBucket, 10*time.Millisecond, logging.NewNop())

	d, err := New(cfg, store, watcher, bridge, events, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestStartStop(t *testing.T) {
	d := newTestDaemon(t, nil)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("daemon not reported running")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon still reported running after Stop")
	}
}

func TestLockRejectsSecondInstance(t *testing.T) {
	d := newTestDaemon(t, nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	second, err := New(d.cfg, d.store, d.watcher, d.bridge, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

type queuedEvents struct {
	batches chan []transcode.JobEvent
}

func (q *queuedEvents) Events(context.Context) ([]transcode.JobEvent, error) {
	select {
	case batch := <-q.batches:
		return batch, nil
	default:
		return nil, nil
	}
}

func TestEventPumpFeedsBridge(t *testing.T) {
	source := &queuedEvents{batches: make(chan []transcode.JobEvent, 1)}
	d := newTestDaemon(t, source)
	d.cfg.Workflow.PollIntervalSeconds = 1

	registry := callback.NewRegistry(logging.NewNop())
	d.bridge = callback.NewBridge(registry, logging.NewNop())

	token := callback.NewToken()
	done, err := registry.Register(token, "incoming/a")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	metadata, err := callback.MetadataFields(token)
	if err != nil {
		t.Fatalf("MetadataFields: %v", err)
	}
	metadata[callback.MetadataAssetID] = "incoming/a"
	metadata[callback.MetadataBucket] = "partner-ace"

	source.batches <- []transcode.JobEvent{{
		JobID:        "job-1",
		Status:       transcode.StatusComplete,
		OutputPaths:  []string{"store://partner-ace/incoming/a/video_720p.mp4"},
		UserMetadata: metadata,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pumped := make(chan struct{})
	go func() {
		d.pumpEvents(ctx)
		close(pumped)
	}()

	select {
	case outcome := <-done:
		if outcome.Err != nil || outcome.Result.Key != "incoming/a/video_720p.mp4" {
			t.Fatalf("outcome = %+v", outcome)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event never reached the suspended task")
	}

	cancel()
	<-pumped
}
