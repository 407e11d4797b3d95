package repositories

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice-backend/models"
)

func TestPublishRefreshEvent(t *testing.T) {
	client, mock := redismock.NewClientMock()
	bus := NewRedisInvalidationBus(client)

	mock.ExpectPublish("catalog:invalidation",
		[]byte(`{"level":"entity","schema":"library","entity":"books"}`)).SetVal(1)

	err := bus.Publish(t.Context(), models.RefreshEvent{
		Level:  models.RefreshEntity,
		Schema: "library",
		Entity: "books",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishRefreshEventOmitsEmptyScopes(t *testing.T) {
	client, mock := redismock.NewClientMock()
	bus := NewRedisInvalidationBus(client)

	mock.ExpectPublish("catalog:invalidation", []byte(`{"level":"all"}`)).SetVal(1)

	err := bus.Publish(t.Context(), models.RefreshEvent{Level: models.RefreshAll})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchPayload(t *testing.T) {
	var received []models.RefreshEvent
	handler := func(_ context.Context, event models.RefreshEvent) {
		received = append(received, event)
	}

	dispatchPayload(t.Context(), `{"level":"schema","schema":"library"}`, handler)
	require.Len(t, received, 1)
	assert.Equal(t, models.RefreshEvent{Level: models.RefreshSchema, Schema: "library"}, received[0])
}

func TestDispatchPayloadSkipsMalformedMessages(t *testing.T) {
	called := false
	dispatchPayload(t.Context(), `{not json`, func(_ context.Context, _ models.RefreshEvent) {
		called = true
	})
	assert.False(t, called)
}
