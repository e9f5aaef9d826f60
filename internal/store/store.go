package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"otm.relay/internal/models"
)

var (
	ErrNotFound       = errors.New("message not found")
	ErrExpired        = errors.New("message has expired")
	ErrInvalidMessage = errors.New("encrypted data is required")
)

// Store holds opaque ciphertext keyed by a server-generated id.
//
// Fetch never deletes a live message; the burn is a separate Delete issued by
// the reader after it managed to decrypt. Two readers racing on the same id
// may therefore both see the message.
type Store interface {
	// Create stores encryptedData and returns the new id.
	Create(ctx context.Context, encryptedData string, expiresAt *time.Time) (string, error)
	// Fetch returns the message. An expired message is deleted and ErrExpired
	// is returned; a missing one yields ErrNotFound.
	Fetch(ctx context.Context, id string) (*models.Message, error)
	// Delete removes the message, or returns ErrNotFound if it is already gone.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

func newID() string {
	return uuid.NewString()
}

// Clock returns the current server time. Stores take one so tests can move time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// Options tune behavior shared by every backend.
type Options struct {
	// Clock defaults to UTC wall time.
	Clock Clock
	// PurgeAfter is how long an expired message may linger unread before the
	// sweeper removes it. Zero disables sweeping, so expired messages stay
	// until a read reports them as expired.
	PurgeAfter time.Duration
	// PurgeInterval is how often the sweeper runs. Defaults to one minute.
	PurgeInterval time.Duration
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = systemClock
	}
	if o.PurgeInterval <= 0 {
		o.PurgeInterval = time.Minute
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
