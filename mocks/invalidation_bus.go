package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/latticehq/lattice-backend/models"
)

type InvalidationBus struct {
	mock.Mock
}

func (m *InvalidationBus) Publish(ctx context.Context, event models.RefreshEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *InvalidationBus) Listen(ctx context.Context, handler func(ctx context.Context, event models.RefreshEvent)) {
	m.Called(ctx, handler)
}
