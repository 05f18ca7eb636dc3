// Package errtrack reports unexpected failures to Sentry. With no DSN
// configured every call is a no-op so local development needs no setup.
package errtrack

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

type Reporter struct {
	enabled bool
}

func Init(dsn, environment string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	return &Reporter{enabled: true}, nil
}

// CaptureError records err with a tag naming the component it came
// from.
func (r *Reporter) CaptureError(err error, component string) {
	if r == nil || !r.enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if component != "" {
			scope.SetTag("component", component)
		}
		sentry.CaptureException(err)
	})
}

func (r *Reporter) Flush(timeout time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(timeout)
}
