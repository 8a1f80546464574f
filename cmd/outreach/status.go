package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/outreach/internal/runner"
)

func newStatusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status <slug>",
		Short: "Show a tenant's run status and quota",
		Long:  "Reads run status from the `outreach serve` process at --addr, which owns the authoritative view of active runs.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, addr, args[0])
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "base URL of the outreach API")
	return cmd
}

func runStatus(cmd *cobra.Command, addr, slug string) error {
	var view runner.StatusView
	if err := newAPIClient(addr).do(cmd.Context(), "GET", slug, "status", &view); err != nil {
		return err
	}
	printStatus(cmd, slug, view)
	return nil
}

func printStatus(cmd *cobra.Command, slug string, v runner.StatusView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tenant:     %s\n", slug)
	fmt.Fprintf(out, "Status:     %s", v.LoopStatus)
	if v.ActuallyRunning {
		fmt.Fprint(out, " (active)")
	}
	fmt.Fprintln(out)
	lastRun := "never"
	if v.LastRunAt != nil {
		lastRun = v.LastRunAt.Local().Format(time.DateTime)
	}
	fmt.Fprintf(out, "Last run:   %s\n", lastRun)
	fmt.Fprintf(out, "Sent today: %d / %d (%d remaining)\n", v.SentToday, v.Cap, v.Remaining)
}
