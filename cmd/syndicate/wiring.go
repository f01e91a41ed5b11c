package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"syndicate/internal/callback"
	"syndicate/internal/config"
	"syndicate/internal/entitlement"
	"syndicate/internal/executions"
	"syndicate/internal/logging"
	"syndicate/internal/notifications"
	"syndicate/internal/objectstore"
	"syndicate/internal/report"
	"syndicate/internal/transcode"
	"syndicate/internal/workflow"
)

// runtime bundles the wired components shared by the run and ingest
// commands.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	objects  objectstore.Store
	store    *executions.Store
	registry *callback.Registry
	bridge   *callback.Bridge
	client   *transcode.HTTPClient
	engine   *workflow.Engine
	notifier notifications.Service
}

// buildRuntime wires the full processing stack from configuration. The
// transcoder client is left nil when no endpoint is configured; executions
// then fail at video submission instead of silently skipping the task.
func buildRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	objects, err := objectstore.NewDirStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}

	store, err := executions.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open execution store: %w", err)
	}

	registry := callback.NewRegistry(logger)
	bridge := callback.NewBridge(registry, logger)

	var client *transcode.HTTPClient
	if cfg.Transcoder.EndpointURL != "" {
		timeout := time.Duration(cfg.Transcoder.RequestTimeoutSeconds) * time.Second
		client, err = transcode.NewHTTPClient(cfg.Transcoder.EndpointURL, cfg.Transcoder.JobTemplate, timeout, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	notifier := notifications.NewService(cfg)

	var transcoder transcode.Client
	if client != nil {
		transcoder = client
	}
	engine, err := workflow.NewEngine(workflow.Options{
		Config:     cfg,
		Store:      store,
		Objects:    objects,
		Transcoder: transcoder,
		Callbacks:  registry,
		Resolver:   entitlement.NewPolicyResolver(cfg.Partners),
		Notifier:   notifier,
		Sink:       report.NewLogSink(logger),
		Logger:     logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		objects:  objects,
		store:    store,
		registry: registry,
		bridge:   bridge,
		client:   client,
		engine:   engine,
		notifier: notifier,
	}, nil
}

func (r *runtime) close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}

// newRunLogger builds the daemon logger writing to stdout and the log file.
func newRunLogger(cfg *config.Config) (*slog.Logger, error) {
	logPath := filepath.Join(cfg.Storage.LogDir, "syndicate.log")
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
}
