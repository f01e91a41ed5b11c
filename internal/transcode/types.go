package transcode

import "time"

// JobStatus is the status field carried by external transcoder events.
type JobStatus string

const (
	StatusProgressing  JobStatus = "PROGRESSING"
	StatusStatusUpdate JobStatus = "STATUS_UPDATE"
	StatusComplete     JobStatus = "COMPLETE"
	StatusError        JobStatus = "ERROR"
	StatusCanceled     JobStatus = "CANCELED"
)

// JobRequest describes one transcode submission. The transcoder itself is an
// opaque external operation; the request only carries locations, the fixed
// audio selection policy, and the user metadata used for correlation.
type JobRequest struct {
	InputBucket       string
	InputKey          string
	AssetID           string
	DestinationBucket string
	// UserMetadata is attached verbatim to every status event the external
	// service emits for this job. Individual values are capped by the
	// service; callers split long values across multiple fields.
	UserMetadata map[string]string
}

// Submission is the synchronous acknowledgement of an accepted job. The
// actual result arrives later through a JobEvent.
type Submission struct {
	JobID       string
	SubmittedAt time.Time
}

// JobEvent is an out-of-band status notification from the external
// transcoder.
type JobEvent struct {
	JobID        string            `json:"jobId"`
	Status       JobStatus         `json:"status"`
	OutputPaths  []string          `json:"outputPaths,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	UserMetadata map[string]string `json:"userMetadata"`
}
