package obs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "req_id"
	RunIDKey     ctxKey = "run_id"
)

// WithRunID tags ctx with the id of the current batch run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// RunID returns the batch run id carried by ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(RunIDKey).(string)
	return id
}

// Logger returns a logger carrying the request and run ids found in ctx.
func Logger(ctx context.Context) *log.Entry {
	fields := log.Fields{}
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		fields["req_id"] = id
	}
	if id := RunID(ctx); id != "" {
		fields["run_id"] = id
	}
	return log.WithFields(fields)
}

// Time logs the duration of an operation when the returned func runs.
// Pass the address of the named error result to log failures too.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	entry := Logger(ctx).WithField("op", name)

	return func(errp *error) {
		entry = entry.WithField("dur_ms", time.Since(start).Milliseconds())

		if errp != nil && *errp != nil {
			entry.WithError(*errp).Warn("operation failed")
			return
		}
		entry.Debug("operation finished")
	}
}
