package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Storage.Root) == "" {
		c.Storage.Root = defaultStorageRoot
	}
	if c.Storage.Root, err = ExpandPath(c.Storage.Root); err != nil {
		return fmt.Errorf("storage.root: %w", err)
	}
	if strings.TrimSpace(c.Storage.StateDir) == "" {
		c.Storage.StateDir = defaultStateDir
	}
	if c.Storage.StateDir, err = ExpandPath(c.Storage.StateDir); err != nil {
		return fmt.Errorf("storage.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Storage.LogDir) == "" {
		c.Storage.LogDir = defaultLogDir
	}
	if c.Storage.LogDir, err = ExpandPath(c.Storage.LogDir); err != nil {
		return fmt.Errorf("storage.log_dir: %w", err)
	}
	if c.Storage.WatermarkPath != "" {
		if c.Storage.WatermarkPath, err = ExpandPath(c.Storage.WatermarkPath); err != nil {
			return fmt.Errorf("storage.watermark_path: %w", err)
		}
	}
	if strings.TrimSpace(c.Storage.IntakeBucket) == "" {
		c.Storage.IntakeBucket = defaultIntakeBucket
	}

	if c.Workflow.ExecutionTimeoutMinutes <= 0 {
		c.Workflow.ExecutionTimeoutMinutes = defaultExecutionTimeoutMinutes
	}
	if c.Workflow.PollIntervalSeconds <= 0 {
		c.Workflow.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	c.Transcoder.EndpointURL = strings.TrimSpace(c.Transcoder.EndpointURL)
	if c.Transcoder.EndpointURL == "" {
		if value, ok := os.LookupEnv("SYNDICATE_TRANSCODER_URL"); ok {
			c.Transcoder.EndpointURL = strings.TrimSpace(value)
		}
	}
	if c.Transcoder.RequestTimeoutSeconds <= 0 {
		c.Transcoder.RequestTimeoutSeconds = defaultTranscoderTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SYNDICATE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}

	for i := range c.Partners {
		c.Partners[i].Name = strings.TrimSpace(c.Partners[i].Name)
		c.Partners[i].OutputBucket = strings.TrimSpace(c.Partners[i].OutputBucket)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the current user's home directory.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return trimmed, nil
}
