package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"otm.relay/internal/crypto"
)

type SendStatus string

const (
	SendIdle    SendStatus = "idle"
	SendSending SendStatus = "sending"
	SendSent    SendStatus = "sent"
	SendError   SendStatus = "error"
)

// SenderState is a snapshot of the sender's progress.
type SenderState struct {
	Status SendStatus
	Err    error
	LastID string
}

type SendRequest struct {
	Message string
	// Password is optional. Without one a random secret is generated and
	// carried in the link fragment.
	Password string
	// ConfirmPassword is checked against Password only when non-empty.
	ConfirmPassword string
	Expiry          Expiry
}

type SendResult struct {
	ID     string
	Link   string
	Secret string
	// PasswordProtected reports that the link carries no secret and the
	// password has to reach the recipient some other way.
	PasswordProtected bool
	ExpiresAt         time.Time
}

type Sender struct {
	api     MessageAPI
	baseURL string
	now     func() time.Time

	mu    sync.Mutex
	state SenderState
}

type SenderOption func(*Sender)

// WithClock overrides the clock used to compute expiry times.
func WithClock(now func() time.Time) SenderOption {
	return func(s *Sender) {
		s.now = now
	}
}

// NewSender returns a sender that builds links under baseURL.
func NewSender(api MessageAPI, baseURL string, opts ...SenderOption) *Sender {
	s := &Sender{
		api:     api,
		baseURL: baseURL,
		now:     time.Now,
		state:   SenderState{Status: SendIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) State() SenderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sender) Reset() {
	s.set(SenderState{Status: SendIdle})
}

func (s *Sender) set(st SenderState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Send encrypts req.Message and uploads it. Validation failures leave the
// state untouched. A failed upload moves the state to error and returns the
// cause wrapped in ErrServer.
func (s *Sender) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if req.Message == "" {
		return nil, ErrEmptyMessage
	}
	if req.ConfirmPassword != "" && req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	secret := req.Password
	if secret == "" {
		secret = crypto.GenerateSecret()
	}

	key, err := crypto.DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	encrypted, err := crypto.Encode(req.Message, key)
	if err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}

	expiresAt := s.now().Add(req.Expiry.Duration()).UTC()

	s.set(SenderState{Status: SendSending})

	id, err := s.api.CreateMessage(ctx, encrypted, &expiresAt)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrServer, err)
		s.set(SenderState{Status: SendError, Err: err})
		return nil, err
	}

	s.set(SenderState{Status: SendSent, LastID: id})

	res := &SendResult{
		ID:                id,
		Secret:            secret,
		PasswordProtected: req.Password != "",
		ExpiresAt:         expiresAt,
	}
	if res.PasswordProtected {
		res.Link = BuildLink(s.baseURL, id, "")
	} else {
		res.Link = BuildLink(s.baseURL, id, secret)
	}
	return res, nil
}
