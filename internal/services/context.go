package services

import "context"

type contextKey string

const (
	executionIDKey contextKey = "execution_id"
	assetIDKey     contextKey = "asset_id"
	partnerKey     contextKey = "partner"
	taskKey        contextKey = "task"
)

// WithExecutionID annotates context with the workflow execution identifier.
func WithExecutionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, executionIDKey, id)
}

// ExecutionIDFromContext extracts the execution identifier if present.
func ExecutionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(executionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithAssetID annotates context with the asset identifier.
func WithAssetID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, assetIDKey, id)
}

// AssetIDFromContext extracts the asset identifier if present.
func AssetIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(assetIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPartner annotates context with the partner branch identifier.
func WithPartner(ctx context.Context, partner string) context.Context {
	if partner == "" {
		return ctx
	}
	return context.WithValue(ctx, partnerKey, partner)
}

// PartnerFromContext returns the partner identifier if present.
func PartnerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(partnerKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTask annotates context with the processing task name.
func WithTask(ctx context.Context, task string) context.Context {
	if task == "" {
		return ctx
	}
	return context.WithValue(ctx, taskKey, task)
}

// TaskFromContext returns the task name if present.
func TaskFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(taskKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
