package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"syndicate/internal/config"
)

const userAgent = "Syndicate-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyExecutionStarted(ctx context.Context, assetID string) error
	NotifyExecutionCompleted(ctx context.Context, assetID string, processed, ignored, failed int, duration time.Duration) error
	NotifyExecutionFailed(ctx context.Context, assetID, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyExecutionStarted(ctx context.Context, assetID string) error {
	data := payload{
		title:   "Syndicate - Execution Started",
		message: fmt.Sprintf("Processing asset: %s", strings.TrimSpace(assetID)),
		tags:    []string{"syndicate", "execution", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExecutionCompleted(ctx context.Context, assetID string, processed, ignored, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title string
	if failed == 0 {
		title = "Syndicate - Execution Complete"
	} else {
		title = "Syndicate - Execution Complete (with errors)"
	}
	message := fmt.Sprintf("Asset %s: %d delivered, %d ignored, %d failed in %s",
		strings.TrimSpace(assetID), processed, ignored, failed, duration)

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"syndicate", "execution", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExecutionFailed(ctx context.Context, assetID, reason string) error {
	var builder strings.Builder
	builder.WriteString("Execution failed for ")
	builder.WriteString(strings.TrimSpace(assetID))
	if reason = strings.TrimSpace(reason); reason != "" {
		builder.WriteString(": ")
		builder.WriteString(reason)
	}

	data := payload{
		title:    "Syndicate - Execution Failed",
		message:  builder.String(),
		tags:     []string{"syndicate", "execution", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Syndicate - Test",
		message:  "Notification system test",
		tags:     []string{"syndicate", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyExecutionStarted(context.Context, string) error { return nil }
func (noopService) NotifyExecutionCompleted(context.Context, string, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyExecutionFailed(context.Context, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
