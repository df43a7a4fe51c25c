package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/tarothouse/backend/internal/events"
)

// AuditWorker writes every audit event as a structured log line.
type AuditWorker struct {
	logger *zap.Logger
}

// NewAuditWorker creates the worker.
func NewAuditWorker(logger *zap.Logger) *AuditWorker {
	return &AuditWorker{logger: logger.Named("audit")}
}

// Start registers the worker on the dispatcher.
func (w *AuditWorker) Start(dispatcher events.Dispatcher) {
	if w == nil || dispatcher == nil {
		return
	}
	events.SubscribeAll(dispatcher, w.handle)
}

func (w *AuditWorker) handle(_ context.Context, event events.Event) error {
	w.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("subject_id", event.SubjectID),
		zap.String("class", string(event.Class)),
		zap.Time("timestamp", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	return nil
}
