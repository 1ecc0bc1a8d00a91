// Package areport wraps github.com/getsentry/sentry-go behind a narrow
// Reporter interface so the broker and client dispatch loops can recover()
// around each processed message and report a programming error instead of
// silently dying, in the spirit of the teacher's hook-driven
// OnPacketProcessed/OnClientExpired observability points.
package areport

import (
	"fmt"

	"github.com/getsentry/sentry-go"
)

// Reporter captures panics and programming errors surfaced by a recover()
// at the top of a dispatch loop iteration.
type Reporter interface {
	ReportPanic(component string, recovered any, stack []byte)
}

// Noop discards every report; it is the default when no DSN is configured.
type Noop struct{}

func (Noop) ReportPanic(string, any, []byte) {}

// Sentry reports panics to a configured Sentry DSN.
type Sentry struct{}

// NewSentry initializes the sentry-go client with dsn and returns a
// Reporter backed by it. If dsn is empty, it returns Noop instead.
func NewSentry(dsn string) (Reporter, error) {
	if dsn == "" {
		return Noop{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		return nil, fmt.Errorf("areport: initializing sentry: %w", err)
	}
	return Sentry{}, nil
}

func (Sentry) ReportPanic(component string, recovered any, stack []byte) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetExtra("stack", string(stack))
		sentry.CaptureException(fmt.Errorf("%s: panic: %v", component, recovered))
	})
}
