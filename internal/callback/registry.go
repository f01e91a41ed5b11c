package callback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"syndicate/internal/asset"
	"syndicate/internal/logging"
	"syndicate/internal/services"
)

var (
	// ErrNotPending is returned when an event addresses a token that has no
	// suspended task: late callbacks after resolution or timeout, or tokens
	// this process never issued.
	ErrNotPending = errors.New("no pending task for token")
	// ErrAlreadyRegistered guards the at-most-one-pending-per-token invariant.
	ErrAlreadyRegistered = errors.New("token already registered")
)

// Outcome is the terminal value of a suspended video task.
type Outcome struct {
	Result asset.ProcessingStepResult
	Err    error
}

// PendingInfo is a read-only snapshot of one suspended task for diagnostics.
type PendingInfo struct {
	Token         string
	AssetID       string
	RegisteredAt  time.Time
	LastHeartbeat time.Time
}

type pendingTask struct {
	done          chan Outcome
	assetID       string
	registeredAt  time.Time
	lastHeartbeat time.Time
}

// Registry correlates continuation tokens with suspended video tasks. A task
// registers before its job is submitted and waits on the returned channel;
// the bridge resolves, fails, or keeps the task alive as events arrive.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*pendingTask
	logger  *slog.Logger
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		pending: make(map[string]*pendingTask),
		logger:  logging.NewComponentLogger(logger, "callback"),
		now:     time.Now,
	}
}

// Register suspends a task under token and returns the channel its outcome
// will arrive on. The channel is buffered; resolution never blocks on the
// waiting task.
func (r *Registry) Register(token, assetID string) (<-chan Outcome, error) {
	if token == "" {
		return nil, services.Wrap(services.ErrValidation, "callback", "register", "token is empty", nil)
	}
	if len(token) > MaxTokenLength {
		return nil, services.Wrap(services.ErrValidation, "callback", "register", "token exceeds capacity", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[token]; exists {
		return nil, ErrAlreadyRegistered
	}
	now := r.now().UTC()
	task := &pendingTask{
		done:          make(chan Outcome, 1),
		assetID:       assetID,
		registeredAt:  now,
		lastHeartbeat: now,
	}
	r.pending[token] = task
	return task.done, nil
}

// Resolve completes the suspended task with a successful result. Resolving a
// token twice, or after Cancel, returns ErrNotPending.
func (r *Registry) Resolve(token string, result asset.ProcessingStepResult) error {
	task, err := r.take(token)
	if err != nil {
		return err
	}
	task.done <- Outcome{Result: result}
	return nil
}

// Fail completes the suspended task with a failure.
func (r *Registry) Fail(token, message string) error {
	task, err := r.take(token)
	if err != nil {
		return err
	}
	task.done <- Outcome{Err: services.Wrap(services.ErrExternalService, "transcode", "job", message, nil)}
	return nil
}

// Heartbeat refreshes the idle timer of a suspended task. Duplicate
// heartbeats are harmless.
func (r *Registry) Heartbeat(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.pending[token]
	if !ok {
		return ErrNotPending
	}
	task.lastHeartbeat = r.now().UTC()
	return nil
}

// Cancel abandons a suspended task without delivering an outcome, used when
// the owning execution times out. Subsequent events for the token are
// rejected with ErrNotPending.
func (r *Registry) Cancel(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[token]; !ok {
		return false
	}
	delete(r.pending, token)
	return true
}

// Pending returns the number of suspended tasks.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Snapshot lists the currently suspended tasks for diagnostics.
func (r *Registry) Snapshot() []PendingInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]PendingInfo, 0, len(r.pending))
	for token, task := range r.pending {
		infos = append(infos, PendingInfo{
			Token:         token,
			AssetID:       task.assetID,
			RegisteredAt:  task.registeredAt,
			LastHeartbeat: task.lastHeartbeat,
		})
	}
	return infos
}

func (r *Registry) take(token string) (*pendingTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.pending[token]
	if !ok {
		return nil, ErrNotPending
	}
	delete(r.pending, token)
	return task, nil
}
