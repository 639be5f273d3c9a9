package service

import (
	"context"

	"go.uber.org/zap"

	"revit-qc/internal/audit"
)

// DeletionMetrics is satisfied by *metrics.Metrics
type DeletionMetrics interface {
	RecordDeletion(entity string)
	RecordAuditPublishError()
}

type nopDeletionMetrics struct{}

func (nopDeletionMetrics) RecordDeletion(string)    {}
func (nopDeletionMetrics) RecordAuditPublishError() {}

// Actor who asked for a delete
type Actor struct {
	Name      string
	RequestID string
}

// DeletionNotifier reports committed deletes to the audit stream and metrics.
// Publishing happens after commit and never fails the delete.
type DeletionNotifier struct {
	publisher audit.Publisher
	metrics   DeletionMetrics
	clock     Clock
	logger    *zap.Logger
}

// NewDeletionNotifier nil publisher / metrics are replaced by no-ops
func NewDeletionNotifier(publisher audit.Publisher, m DeletionMetrics, clock Clock, logger *zap.Logger) *DeletionNotifier {
	if publisher == nil {
		publisher = audit.NopPublisher{}
	}
	if m == nil {
		m = nopDeletionMetrics{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &DeletionNotifier{publisher: publisher, metrics: m, clock: clock, logger: logger}
}

func (n *DeletionNotifier) committed(ctx context.Context, actor Actor, entity string, id int64, kind string) {
	n.metrics.RecordDeletion(entity)
	n.logger.Info("Entity deleted",
		zap.String("entity", entity),
		zap.Int64("id", id),
		zap.String("kind", kind),
		zap.String("actor", actor.Name),
		zap.String("request_id", actor.RequestID),
	)

	ev := audit.DeletionEvent{
		Entity:    entity,
		EntityID:  id,
		Kind:      kind,
		Actor:     actor.Name,
		RequestID: actor.RequestID,
		DeletedAt: n.clock.Now().UTC(),
	}
	if err := n.publisher.PublishDeletion(ctx, ev); err != nil {
		n.metrics.RecordAuditPublishError()
		n.logger.Warn("Failed to publish deletion event",
			zap.String("entity", entity),
			zap.Int64("id", id),
			zap.Error(err),
		)
	}
}
