package flow

import (
	"context"
	"time"

	"otm.relay/internal/client"
)

// MessageAPI is the relay surface the flows need. *client.Client implements it.
type MessageAPI interface {
	CreateMessage(ctx context.Context, encryptedData string, expiresAt *time.Time) (string, error)
	GetMessage(ctx context.Context, id string) (*client.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

var _ MessageAPI = (*client.Client)(nil)
