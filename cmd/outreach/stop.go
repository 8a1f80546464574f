package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stop <slug>",
		Short: "Ask a running tenant campaign to stop",
		Long:  "Requests a cooperative stop from the `outreach serve` process at --addr. The run ends at its next checkpoint.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd, addr, args[0])
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "base URL of the outreach API")
	return cmd
}

func runStop(cmd *cobra.Command, addr, slug string) error {
	var resp struct {
		Status string `json:"status"`
	}
	err := newAPIClient(addr).do(cmd.Context(), "POST", slug, "stop", &resp)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Code == "not_found" {
		return fmt.Errorf("no active run for %s", slug)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", slug, resp.Status)
	return nil
}
