package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SetupSentry initializes the Sentry client. An empty dsn leaves reporting
// disabled; every capture call becomes a no-op.
func SetupSentry(dsn, env string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	sentry.CaptureMessage("Lifeguard backend started")
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
