package preflight

import (
	"context"
	"os"
	"strings"

	"syndicate/internal/config"
	"syndicate/internal/executions"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config, store *executions.Store) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Storage root", cfg.Storage.Root))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Storage.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Storage.LogDir))

	if path := strings.TrimSpace(cfg.Storage.WatermarkPath); path != "" {
		results = append(results, CheckFileReadable("Watermark image", path))
	}

	if strings.TrimSpace(cfg.Transcoder.EndpointURL) != "" {
		results = append(results, CheckTranscoder(ctx, cfg.Transcoder.EndpointURL))
	}

	if store != nil {
		results = append(results, CheckDatabase(ctx, store))
	}

	return results
}

// CheckFileReadable verifies a regular file exists and is readable.
func CheckFileReadable(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: path + " (error: does not exist)"}
		}
		return Result{Name: name, Detail: path + " (error: " + err.Error() + ")"}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: path + " (error: is a directory)"}
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{Name: name, Detail: path + " (error: " + err.Error() + ")"}
	}
	_ = f.Close()
	return Result{Name: name, Passed: true, Detail: path + " (readable)"}
}
