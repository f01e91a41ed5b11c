package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"syndicate/internal/config"
	"syndicate/internal/executions"
	"syndicate/internal/trigger"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <folder>",
		Short: "Process one intake delivery folder synchronously",
		Long: "Runs the full workflow for a single delivery folder in the intake " +
			"bucket. The folder must contain manifest.json and the three objects " +
			"it references.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := newRunLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			rt, err := buildRuntime(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			// The video task suspends on transcoder callbacks, so the
			// event pump has to run alongside the synchronous execution.
			pumpCtx, stopPump := context.WithCancel(cmd.Context())
			defer stopPump()
			if rt.client != nil {
				go pumpTranscoderEvents(pumpCtx, cfg, rt, logger)
			}

			folder := strings.Trim(args[0], "/")
			trig := trigger.New(rt.objects, rt.engine, cfg.Storage.IntakeBucket, logger)

			execution, err := trig.HandleObjectCreated(cmd.Context(), folder+"/"+trigger.ManifestName)
			if err != nil {
				return err
			}
			if execution == nil {
				return fmt.Errorf("delivery folder %s is incomplete (manifest or source objects missing)", folder)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Execution %s finished with status %s\n", execution.ID, execution.Status)
			if execution.Status == executions.StatusCompleted && execution.ReportJSON != "" {
				fmt.Fprintln(out, execution.ReportJSON)
			}
			return nil
		},
	}
}

// pumpTranscoderEvents drains transcoder events into the callback bridge
// until ctx is cancelled. Used by synchronous commands that cannot rely on
// the daemon's pump.
func pumpTranscoderEvents(ctx context.Context, cfg *config.Config, rt *runtime, logger *slog.Logger) {
	interval := time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events, err := rt.client.Events(ctx)
			if err != nil {
				logger.Debug("event poll failed", "error", err)
				continue
			}
			for _, event := range events {
				if err := rt.bridge.HandleEvent(ctx, event); err != nil {
					logger.Debug("event rejected", "error", err)
				}
			}
		}
	}
}
