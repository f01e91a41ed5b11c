package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"syndicate/internal/executions"
)

func newExecutionsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var showReport bool

	cmd := &cobra.Command{
		Use:   "executions [execution-id]",
		Short: "List executions or show one execution's report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := executions.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				return showExecution(cmd, store, args[0])
			}

			listed, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(listed) == 0 {
				fmt.Fprintln(out, "No executions recorded")
				return nil
			}

			fmt.Fprintln(out, renderExecutionsTable(listed, showReport))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum executions to list")
	cmd.Flags().BoolVar(&showReport, "report", false, "Include per-partner outcomes in the listing")
	return cmd
}

func showExecution(cmd *cobra.Command, store *executions.Store, id string) error {
	execution, err := store.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	if execution == nil {
		return fmt.Errorf("no execution with id %s", id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Execution %s\n", execution.ID)
	fmt.Fprintf(out, "  Asset:   %s\n", execution.AssetID)
	fmt.Fprintf(out, "  Status:  %s\n", execution.Status)
	fmt.Fprintf(out, "  Started: %s\n", execution.CreatedAt.Local().Format(time.DateTime))
	if execution.FinishedAt != nil {
		fmt.Fprintf(out, "  Ended:   %s\n", execution.FinishedAt.Local().Format(time.DateTime))
	}
	if execution.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:   %s\n", execution.ErrorMessage)
	}
	if execution.ReportJSON != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, execution.ReportJSON)
	}
	return nil
}
