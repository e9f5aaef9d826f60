package flow

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"otm.relay/internal/client"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) CreateMessage(ctx context.Context, encryptedData string, expiresAt *time.Time) (string, error) {
	args := m.Called(ctx, encryptedData, expiresAt)
	return args.String(0), args.Error(1)
}

func (m *mockAPI) GetMessage(ctx context.Context, id string) (*client.Message, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*client.Message)
	return msg, args.Error(1)
}

func (m *mockAPI) DeleteMessage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
