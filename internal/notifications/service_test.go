package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"syndicate/internal/config"
	"syndicate/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyExecutionStarted(context.Background(), "incoming/a"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "execution started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyExecutionStarted(context.Background(), "incoming/asset-1")
			},
			expectTitle:   "Syndicate - Execution Started",
			expectMessage: "Processing asset: incoming/asset-1",
			expectTags:    "syndicate,execution,started",
		},
		{
			name: "execution completed cleanly",
			notify: func(svc notifications.Service) error {
				return svc.NotifyExecutionCompleted(context.Background(), "incoming/asset-1", 2, 1, 0, 90*time.Second)
			},
			expectTitle:   "Syndicate - Execution Complete",
			expectMessage: "Asset incoming/asset-1: 2 delivered, 1 ignored, 0 failed in 1m30s",
			expectTags:    "syndicate,execution,completed",
		},
		{
			name: "execution completed with errors",
			notify: func(svc notifications.Service) error {
				return svc.NotifyExecutionCompleted(context.Background(), "incoming/asset-1", 1, 0, 1, time.Second)
			},
			expectTitle:    "Syndicate - Execution Complete (with errors)",
			expectMessage:  "Asset incoming/asset-1: 1 delivered, 0 ignored, 1 failed in 1s",
			expectTags:     "syndicate,execution,completed",
			expectPriority: "high",
		},
		{
			name: "execution failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyExecutionFailed(context.Background(), "incoming/asset-1", "deadline exceeded")
			},
			expectTitle:    "Syndicate - Execution Failed",
			expectMessage:  "Execution failed for incoming/asset-1: deadline exceeded",
			expectTags:     "syndicate,execution,failed",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic paused", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from failing ntfy endpoint")
	}
}
