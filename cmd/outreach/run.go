package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/outreach/internal/progress"
	"github.com/zulandar/outreach/internal/runner"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		noDispatch bool
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:   "run <slug>",
		Short: "Run one tenant's campaign in the foreground",
		Long: `Runs a single tenant's campaign in this process and prints progress as it
happens. SIGINT requests a cooperative stop: the run ends at its next
checkpoint, after any in-flight send completes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, configPath, args[0], noDispatch, batchSize)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Outreach config file")
	cmd.Flags().BoolVar(&noDispatch, "no-dispatch", false, "walk the queue without sending (items are skipped)")
	cmd.Flags().IntVar(&batchSize, "batch", 0, "cap on sends for this run (default: daily limit)")
	return cmd
}

func runRun(cmd *cobra.Command, configPath, slug string, noDispatch bool, batchSize int) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, gormDB, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	sub := a.hub.Subscribe(slug)
	defer sub.Close()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for e := range sub.C {
			printEvent(cmd, e)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			fmt.Fprintln(out, "\nStop requested, finishing current step...")
			if err := a.coord.RequestStop(context.Background(), slug); err != nil {
				fmt.Fprintf(out, "stop: %v\n", err)
			}
		}
	}()

	opts := runner.RunOpts{BatchSize: batchSize}
	if noDispatch {
		off := false
		opts.UseDispatcher = &off
	}
	res, err := a.coord.RunForTenant(context.Background(), slug, opts)
	if err != nil {
		return err
	}
	// Buffered events stay readable after Close.
	sub.Close()
	<-printed

	fmt.Fprintf(out, "Result: %s, processed %d", res.Status, res.Processed)
	if res.Reason != "" {
		fmt.Fprintf(out, " (%s)", res.Reason)
	}
	fmt.Fprintln(out)
	if res.Status == runner.StatusError {
		return fmt.Errorf("run %s: %w", slug, res.Err)
	}
	return nil
}

func printEvent(cmd *cobra.Command, e progress.Event) {
	out := cmd.OutOrStdout()
	switch e.Type {
	case progress.TypeStart:
		fmt.Fprintf(out, "Started: %d contacts queued\n", e.Total)
	case progress.TypeSchedule:
		fmt.Fprintf(out, "Planned %d sends (remaining today %d of %d)\n", len(e.Planned), e.RemainingToday, e.Cap)
		for _, at := range e.Planned {
			fmt.Fprintf(out, "  %s\n", at.Local().Format("15:04:05"))
		}
	case progress.TypeItem:
		fmt.Fprintf(out, "%s  %-24s %-16s %s\n", e.At.Local().Format("15:04:05"), truncate(e.Name, 24), e.Phone, e.Status)
	case progress.TypeEnd:
		fmt.Fprintf(out, "Ended: %d sent", e.Processed)
		if e.Reason != "" {
			fmt.Fprintf(out, " (%s)", e.Reason)
		}
		fmt.Fprintln(out)
	}
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
