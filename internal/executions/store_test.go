package executions_test

import (
	"context"
	"errors"
	"testing"

	"syndicate/internal/executions"
	"syndicate/internal/services"
	"syndicate/internal/testsupport"
)

func TestCreateAndFetch(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	execution, err := store.Create(ctx, "incoming/asset-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if execution.ID == "" || execution.AssetID != "incoming/asset-1" {
		t.Fatalf("unexpected execution: %+v", execution)
	}
	if execution.Status != executions.StatusRunning || !execution.Active() {
		t.Fatalf("new execution not running: %+v", execution)
	}

	fetched, err := store.GetByID(ctx, execution.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil || fetched.ID != execution.ID {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestCreateRejectsSecondActiveExecution(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.Create(ctx, "incoming/asset-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	existing, err := store.Create(ctx, "incoming/asset-1")
	if !errors.Is(err, executions.ErrActiveExists) {
		t.Fatalf("expected ErrActiveExists, got %v", err)
	}
	if existing == nil || existing.ID != first.ID {
		t.Fatalf("existing execution not surfaced: %+v", existing)
	}
}

func TestCreateNeverReturnsActiveExistsWithoutExecution(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	// One goroutine races Create against another goroutine completing
	// whatever is active. Whatever the interleaving, ErrActiveExists must
	// always carry the conflicting execution.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if active, err := store.FindActiveByAsset(ctx, "incoming/asset-1"); err == nil && active != nil {
				_ = store.MarkCompleted(ctx, active.ID, `{}`)
			}
		}
	}()

	for i := 0; i < 50; i++ {
		execution, err := store.Create(ctx, "incoming/asset-1")
		if err == nil {
			continue
		}
		if errors.Is(err, executions.ErrActiveExists) && execution == nil {
			t.Fatalf("iteration %d: ErrActiveExists without the existing execution", i)
		}
	}
	<-done
}

func TestNewExecutionAllowedAfterCompletion(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.Create(ctx, "incoming/asset-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkCompleted(ctx, first.ID, `{"executionId":"x"}`); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	second, err := store.Create(ctx, "incoming/asset-1")
	if err != nil {
		t.Fatalf("second Create after completion: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh execution id")
	}

	history, err := store.ListByAsset(ctx, "incoming/asset-1")
	if err != nil {
		t.Fatalf("ListByAsset: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
}

func TestMarkCompletedStoresReport(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	execution, err := store.Create(ctx, "incoming/asset-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkCompleted(ctx, execution.ID, `{"results":[]}`); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	fetched, err := store.GetByID(ctx, execution.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != executions.StatusCompleted || fetched.ReportJSON != `{"results":[]}` {
		t.Fatalf("completed execution = %+v", fetched)
	}
	if fetched.FinishedAt == nil {
		t.Fatal("finished timestamp missing")
	}
}

func TestMarkFailedStoresMessageAndNoReport(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	execution, err := store.Create(ctx, "incoming/asset-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkFailed(ctx, execution.ID, "deadline exceeded"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	fetched, err := store.GetByID(ctx, execution.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != executions.StatusFailed || fetched.ErrorMessage != "deadline exceeded" {
		t.Fatalf("failed execution = %+v", fetched)
	}
	if fetched.ReportJSON != "" {
		t.Fatalf("failed execution carries a report: %q", fetched.ReportJSON)
	}
}

func TestFinishUnknownExecution(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	err := store.MarkCompleted(context.Background(), "missing-id", "{}")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, assetID := range []string{"incoming/a", "incoming/b", "incoming/c"} {
		if _, err := store.Create(ctx, assetID); err != nil {
			t.Fatalf("Create %s: %v", assetID, err)
		}
	}

	listed, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("list length = %d, want 2", len(listed))
	}
	if listed[0].CreatedAt.Before(listed[1].CreatedAt) {
		t.Fatal("list not ordered newest first")
	}
}

func TestCountByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	running, err := store.Create(ctx, "incoming/a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	failed, err := store.Create(ctx, "incoming/b")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.MarkFailed(ctx, failed.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	_ = running

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[executions.StatusRunning] != 1 || counts[executions.StatusFailed] != 1 {
		t.Fatalf("counts = %v", counts)
	}

	if err := store.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
