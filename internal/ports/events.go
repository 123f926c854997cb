package ports

import "context"

// EventPublisher delivers reservation lifecycle events drained from the
// outbox. Adapter-neutral so application code stays independent of broker
// specifics.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
