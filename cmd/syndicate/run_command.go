package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"syndicate/internal/daemon"
	"syndicate/internal/preflight"
	"syndicate/internal/transcode"
	"syndicate/internal/trigger"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the syndication daemon",
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

			if !skipPreflight {
				failed := 0
				for _, result := range preflight.RunAll(cmd.Context(), cfg, rt.store) {
					if !result.Passed {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", result.Name, result.Detail)
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d preflight check(s) failed", failed)
				}
			}

			trig := trigger.New(rt.objects, rt.engine, cfg.Storage.IntakeBucket, logger)
			interval := time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second
			watcher := trigger.NewWatcher(rt.objects, trig, rt.store, cfg.Storage.IntakeBucket, interval, logger)

			var events transcode.EventSource
			if rt.client != nil {
				events = rt.client
			}
			d, err := daemon.New(cfg, rt.store, watcher, rt.bridge, events, logger)
			if err != nil {
				return err
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			<-signalCtx.Done()
			d.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before starting")
	return cmd
}
