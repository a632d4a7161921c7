package audithook

import (
	"context"
	"log/slog"
)

// LogRecorder writes audit events as structured log records.
type LogRecorder struct {
	logger *slog.Logger
}

var _ Recorder = (*LogRecorder)(nil)

// NewLogRecorder returns a Recorder that logs each event on logger under
// the "audit" group.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LogRecorder) Record(ctx context.Context, evt *AuditEvent) error {
	attrs := []any{
		slog.String("action", evt.Action),
		slog.String("category", evt.Category),
		slog.String("resource", evt.Resource),
		slog.String("resource_id", evt.ResourceID),
		slog.String("outcome", evt.Outcome),
	}
	if evt.Reason != "" {
		attrs = append(attrs, slog.String("reason", evt.Reason))
	}
	if len(evt.Metadata) > 0 {
		meta := make([]any, 0, len(evt.Metadata))
		for k, v := range evt.Metadata {
			meta = append(meta, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}

	r.logger.Log(ctx, levelFor(evt.Severity), "audit", slog.Group("audit", attrs...))
	return nil
}

func levelFor(severity string) slog.Level {
	switch severity {
	case SeverityCritical:
		return slog.LevelError
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
