package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"syndicate/internal/executions"
	"syndicate/internal/preflight"
)

var statusCaser = cases.Title(language.English)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment health and execution counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colors := newPalette(out)

			store, err := executions.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			printSection(out, colors, "Environment")
			for _, result := range preflight.RunAll(cmd.Context(), cfg, store) {
				printCheck(out, colors, result)
			}

			fmt.Fprintln(out)
			printSection(out, colors, "Partners")
			for _, partner := range cfg.Partners {
				printPartner(out, colors, partner)
			}

			counts, err := store.CountByStatus(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			printSection(out, colors, "Executions")
			for _, status := range []executions.Status{executions.StatusRunning, executions.StatusCompleted, executions.StatusFailed} {
				label := statusCaser.String(strings.ReplaceAll(string(status), "_", " "))
				printCount(out, colors, label, counts[status], status == executions.StatusFailed)
			}
			return nil
		},
	}
}
