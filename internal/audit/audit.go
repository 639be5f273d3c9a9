// Package audit records destructive operations on a Redis stream.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	rediscommon "revit-qc/common/redis"
)

// Entity types of a deletion
const (
	EntityCheckRun  = "check_run"
	EntityModel     = "model"
	EntityClashFile = "clash_file"
)

// DeletionEvent one committed delete
type DeletionEvent struct {
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entity_id"`
	Kind      string    `json:"kind,omitempty"` // check kind, for check_run only
	Actor     string    `json:"actor"`
	RequestID string    `json:"request_id,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Publisher receives deletion events after the transaction committed
type Publisher interface {
	PublishDeletion(ctx context.Context, ev DeletionEvent) error
}

// NopPublisher drops every event (Redis disabled)
type NopPublisher struct{}

func (NopPublisher) PublishDeletion(context.Context, DeletionEvent) error { return nil }

// StreamPublisher appends events to a Redis stream as a JSON "data" field
type StreamPublisher struct {
	client *rediscommon.Client
	stream string
	logger *zap.Logger
}

func NewStreamPublisher(client *rediscommon.Client, stream string, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, logger: logger}
}

func (p *StreamPublisher) PublishDeletion(ctx context.Context, ev DeletionEvent) error {
	id, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, ev)
	if err != nil {
		return fmt.Errorf("failed to publish deletion event: %w", err)
	}
	p.logger.Debug("Deletion event published",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("entity", ev.Entity),
		zap.Int64("entity_id", ev.EntityID),
	)
	return nil
}
