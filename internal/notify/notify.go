// Package notify posts run summaries to operator chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Summary describes one finished run.
type Summary struct {
	Tenant    string
	Status    string // ok, quota_reached, stopped, error
	Processed int
	Reason    string
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// Notifier delivers a run summary somewhere a human will see it.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// Multi fans a summary out to several notifiers and joins their errors.
type Multi []Notifier

// Notify calls every notifier, even after a failure.
func (m Multi) Notify(ctx context.Context, s Summary) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatSummary renders a one-paragraph plain-text summary.
func FormatSummary(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Campaign run for %s finished: %s", s.Tenant, s.Status)
	if s.Reason != "" {
		fmt.Fprintf(&b, " (%s)", s.Reason)
	}
	fmt.Fprintf(&b, "\nSent: %d", s.Processed)
	if !s.StartedAt.IsZero() && !s.EndedAt.IsZero() {
		fmt.Fprintf(&b, "\nDuration: %s", s.EndedAt.Sub(s.StartedAt).Round(time.Second))
	}
	if s.Err != nil {
		fmt.Fprintf(&b, "\nError: %v", s.Err)
	}
	return b.String()
}
