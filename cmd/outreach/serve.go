package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/outreach/internal/dashboard"
	"github.com/zulandar/outreach/internal/trigger"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noTrigger  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler with its HTTP API and daily trigger",
		Long: `Starts the HTTP API (run, stop, status, SSE events) and the daily
auto-trigger, which starts a run for every auto_run tenant with a non-empty
queue. Runs in the foreground until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noTrigger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Outreach config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	cmd.Flags().BoolVar(&noTrigger, "no-trigger", false, "disable the daily auto-trigger")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noTrigger bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, gormDB, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if port <= 0 {
		port = cfg.Dashboard.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.hub.RunHeartbeat(gctx, cfg.HeartbeatInterval())
		return nil
	})
	if !noTrigger {
		trig, err := trigger.New(trigger.Opts{
			Expr:   cfg.Scheduler.DailyTrigger,
			Lister: a.store,
			Runner: a.coord,
			Logger: a.log.With().Str("component", "trigger").Logger(),
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return trig.Run(gctx) })
	}
	g.Go(func() error {
		return dashboard.Start(gctx, dashboard.StartOpts{
			Runner: a.coord,
			Hub:    a.hub,
			Queue:  a.store,
			Port:   port,
			Out:    cmd.OutOrStdout(),
			Logger: a.log.With().Str("component", "api").Logger(),
		})
	})

	err = g.Wait()
	a.coord.Wait()
	fmt.Fprintln(cmd.OutOrStdout(), "Outreach stopped.")
	return err
}
