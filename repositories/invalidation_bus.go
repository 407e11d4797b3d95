package repositories

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/utils"
)

const invalidationChannel = "catalog:invalidation"

// InvalidationBus broadcasts catalog refresh events to every running
// instance so their in-memory registries converge after a schema change.
type InvalidationBus interface {
	Publish(ctx context.Context, event models.RefreshEvent) error
	Listen(ctx context.Context, handler func(ctx context.Context, event models.RefreshEvent))
}

type RedisInvalidationBus struct {
	client *redis.Client
}

func NewRedisInvalidationBus(client *redis.Client) *RedisInvalidationBus {
	return &RedisInvalidationBus{client: client}
}

func (bus *RedisInvalidationBus) Publish(ctx context.Context, event models.RefreshEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "can't marshal refresh event")
	}
	if err := bus.client.Publish(ctx, invalidationChannel, payload).Err(); err != nil {
		return errors.Wrap(err, "can't publish refresh event")
	}
	return nil
}

// Listen subscribes to the invalidation channel and calls handler for
// each decoded event. Blocks until ctx is cancelled; malformed payloads
// are logged and skipped.
func (bus *RedisInvalidationBus) Listen(ctx context.Context, handler func(ctx context.Context, event models.RefreshEvent)) {
	pubsub := bus.client.Subscribe(ctx, invalidationChannel)
	defer pubsub.Close()

	channel := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-channel:
			if !ok {
				return
			}
			dispatchPayload(ctx, message.Payload, handler)
		}
	}
}

// dispatchPayload decodes one raw message and hands it to the handler.
// Malformed payloads are logged and dropped so one bad publisher cannot
// stall the listener.
func dispatchPayload(ctx context.Context, payload string, handler func(ctx context.Context, event models.RefreshEvent)) {
	var event models.RefreshEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		utils.LoggerFromContext(ctx).ErrorContext(ctx, "discarding malformed refresh event",
			"payload", payload, "error", err.Error())
		return
	}
	handler(ctx, event)
}
