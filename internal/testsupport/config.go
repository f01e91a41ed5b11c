// Package testsupport provides shared helpers for package tests: temp-dir
// configs, execution stores, and seeded intake objects.
package testsupport

import (
	"path/filepath"
	"testing"

	"syndicate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Root = filepath.Join(base, "store")
	cfg.Storage.StateDir = filepath.Join(base, "state")
	cfg.Storage.LogDir = filepath.Join(base, "logs")
	cfg.Storage.WatermarkPath = ""
	cfg.Workflow.PollIntervalSeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithPartners replaces the configured partner roster.
func WithPartners(partners ...config.Partner) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Partners = partners
	}
}

// WithTranscoderEndpoint points the transcoder client at a test server.
func WithTranscoderEndpoint(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Transcoder.EndpointURL = url
	}
}

// WithExecutionTimeout overrides the workflow deadline in minutes.
func WithExecutionTimeout(minutes int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.ExecutionTimeoutMinutes = minutes
	}
}
