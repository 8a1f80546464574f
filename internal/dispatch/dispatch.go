// Package dispatch sends one outbound message per contact through a tenant's
// messaging gateway.
package dispatch

import (
	"context"
)

// Message is everything a dispatcher needs for one send attempt.
type Message struct {
	Tenant      string
	Name        string
	Phone       string
	Niche       *string
	Text        string // tenant message template, sent verbatim
	Credentials string // tenant credentials, opaque JSON
}

// Dispatcher attempts exactly one outbound send. A nil error means the
// gateway accepted the message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Func adapts a plain function to Dispatcher.
type Func func(ctx context.Context, msg Message) error

// Dispatch calls f.
func (f Func) Dispatch(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
