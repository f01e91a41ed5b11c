package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"syndicate/internal/logging"
	"syndicate/internal/services"
)

// Client submits transcode jobs to the external service.
type Client interface {
	Submit(ctx context.Context, req JobRequest) (*Submission, error)
}

// EventSource drains pending job status events from the external service.
// The service deletes events once they have been handed out, so each call
// returns only events not seen before.
type EventSource interface {
	Events(ctx context.Context) ([]JobEvent, error)
}

// audioSelector is the fixed audio-track selection policy applied to every
// submission: first program, track 1, never the container default.
type audioSelector struct {
	DefaultSelection string `json:"defaultSelection"`
	ProgramSelection int    `json:"programSelection"`
	SelectorType     string `json:"selectorType"`
	Tracks           []int  `json:"tracks"`
}

type jobPayload struct {
	Template      string            `json:"jobTemplate"`
	Input         string            `json:"fileInput"`
	AudioSelector audioSelector     `json:"audioSelector"`
	Destination   string            `json:"destination"`
	UserMetadata  map[string]string `json:"userMetadata"`
}

type jobAccepted struct {
	Job struct {
		ID string `json:"id"`
	} `json:"job"`
}

// HTTPClient talks to a transcoding service over HTTP. Submission is the only
// synchronous call; everything else arrives through the callback bridge.
type HTTPClient struct {
	endpoint string
	template string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPClient builds a transcoder client for the configured endpoint.
func NewHTTPClient(endpoint, template string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcode", "new client", "endpoint url is required", nil)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		template: template,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "transcode"),
	}, nil
}

func (c *HTTPClient) Submit(ctx context.Context, req JobRequest) (*Submission, error) {
	payload := jobPayload{
		Template: c.template,
		Input:    ObjectURI(req.InputBucket, req.InputKey),
		AudioSelector: audioSelector{
			DefaultSelection: "NOT_DEFAULT",
			ProgramSelection: 1,
			SelectorType:     "TRACK",
			Tracks:           []int{1},
		},
		Destination:  DestinationPrefix(req.DestinationBucket, req.AssetID),
		UserMetadata: req.UserMetadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build job request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "transcode", "submit", "job submission failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrExternalService, "transcode", "submit",
			fmt.Sprintf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var accepted jobAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "transcode", "submit", "undecodable acceptance response", err)
	}
	jobID := strings.TrimSpace(accepted.Job.ID)
	if jobID == "" {
		jobID = uuid.NewString()
	}

	c.logger.Info("transcode job submitted",
		logging.String("job_id", jobID),
		logging.String(logging.FieldAssetID, req.AssetID),
		logging.String("input", payload.Input),
	)
	return &Submission{JobID: jobID, SubmittedAt: time.Now().UTC()}, nil
}

// Events fetches pending job status events from the service's event queue.
func (c *HTTPClient) Events(ctx context.Context) ([]JobEvent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("build events request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "transcode", "events", "event fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, services.Wrap(services.ErrExternalService, "transcode", "events",
			fmt.Sprintf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var events []JobEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "transcode", "events", "undecodable event batch", err)
	}
	return events, nil
}
