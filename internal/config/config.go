package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage contains object store and on-disk state locations.
type Storage struct {
	Root          string `toml:"root"`
	IntakeBucket  string `toml:"intake_bucket"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	WatermarkPath string `toml:"watermark_path"`
}

// Workflow contains execution-level orchestration settings.
type Workflow struct {
	ExecutionTimeoutMinutes int `toml:"execution_timeout_minutes"`
	PollIntervalSeconds     int `toml:"poll_interval_seconds"`
}

// Transcoder contains the external transcoding service endpoint settings.
type Transcoder struct {
	EndpointURL           string `toml:"endpoint_url"`
	JobTemplate           string `toml:"job_template"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Partner declares one syndication partner branch.
type Partner struct {
	Name         string `toml:"name"`
	Entitled     bool   `toml:"entitled"`
	OutputBucket string `toml:"output_bucket"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config is the root configuration for the syndication daemon. All components
// receive their settings through constructor injection; nothing reads ambient
// environment state at call time.
type Config struct {
	Storage       Storage       `toml:"storage"`
	Workflow      Workflow      `toml:"workflow"`
	Transcoder    Transcoder    `toml:"transcoder"`
	Partners      []Partner     `toml:"partners"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the conventional configuration file location.
func DefaultConfigPath() string {
	return "~/.config/syndicate/config.toml"
}

// Load reads configuration from path, falling back to defaults for any value
// the file does not set. A missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := cfg.normalize(); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnsureDirectories creates the directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Storage.Root, c.Storage.StateDir, c.Storage.LogDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// PartnerNames returns the configured partner identifiers in declaration order.
func (c *Config) PartnerNames() []string {
	names := make([]string, 0, len(c.Partners))
	for _, partner := range c.Partners {
		names = append(names, partner.Name)
	}
	return names
}

// PartnerByName looks up one partner declaration.
func (c *Config) PartnerByName(name string) (Partner, bool) {
	for _, partner := range c.Partners {
		if partner.Name == name {
			return partner, true
		}
	}
	return Partner{}, false
}

// WriteSample writes the embedded sample configuration to path without
// overwriting an existing file.
func WriteSample(path string) error {
	resolved, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(resolved); err == nil {
		return fmt.Errorf("config file already exists at %s", resolved)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(resolved, []byte(sampleConfig), 0o644)
}
