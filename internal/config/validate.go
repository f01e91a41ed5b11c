package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration is internally consistent. It returns all
// problems at once so operators can fix a config file in a single pass.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Storage.Root) == "" {
		problems = append(problems, "storage.root is required")
	}
	if strings.TrimSpace(c.Storage.IntakeBucket) == "" {
		problems = append(problems, "storage.intake_bucket is required")
	}

	if len(c.Partners) == 0 {
		problems = append(problems, "at least one partner must be declared")
	}
	seen := make(map[string]struct{}, len(c.Partners))
	buckets := make(map[string]string, len(c.Partners))
	for i, partner := range c.Partners {
		if partner.Name == "" {
			problems = append(problems, fmt.Sprintf("partners[%d].name is required", i))
			continue
		}
		if _, dup := seen[partner.Name]; dup {
			problems = append(problems, fmt.Sprintf("partner %q declared more than once", partner.Name))
		}
		seen[partner.Name] = struct{}{}
		if partner.OutputBucket == "" {
			problems = append(problems, fmt.Sprintf("partner %q needs an output_bucket", partner.Name))
			continue
		}
		if partner.OutputBucket == c.Storage.IntakeBucket {
			problems = append(problems, fmt.Sprintf("partner %q output_bucket must differ from the intake bucket", partner.Name))
		}
		if owner, taken := buckets[partner.OutputBucket]; taken {
			problems = append(problems, fmt.Sprintf("partners %q and %q share output_bucket %q; partner branches write without coordination and need exclusive buckets", owner, partner.Name, partner.OutputBucket))
		}
		buckets[partner.OutputBucket] = partner.Name
	}

	if endpoint := strings.TrimSpace(c.Transcoder.EndpointURL); endpoint != "" {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			problems = append(problems, fmt.Sprintf("transcoder.endpoint_url is not a valid URL: %v", err))
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration:\n  - " + strings.Join(problems, "\n  - "))
	}
	return nil
}
