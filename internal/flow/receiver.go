package flow

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"otm.relay/internal/client"
	"otm.relay/internal/crypto"
)

type ReceiveStatus string

const (
	ReceiveIdle       ReceiveStatus = "idle"
	ReceiveLoading    ReceiveStatus = "loading"
	ReceiveDecrypting ReceiveStatus = "decrypting"
	ReceiveReady      ReceiveStatus = "ready"
	ReceiveError      ReceiveStatus = "error"
)

type BurnStatus string

const (
	BurnIdle     BurnStatus = "idle"
	BurnDeleting BurnStatus = "deleting"
	BurnDeleted  BurnStatus = "deleted"
	BurnError    BurnStatus = "error"
)

// ReceiverState is a snapshot of the receiver's progress. The plaintext is
// never part of it.
type ReceiverState struct {
	Status        ReceiveStatus
	BurnStatus    BurnStatus
	Err           error
	BurnErr       error
	EncryptedData string
	ExpiresAt     *time.Time
}

type ReceiveResult struct {
	Plaintext string
	ExpiresAt *time.Time
	// BurnErr is set, wrapping ErrBurnFailed, when the delete after a
	// successful decrypt failed.
	BurnErr error
}

type Receiver struct {
	api MessageAPI

	mu    sync.Mutex
	state ReceiverState
}

func NewReceiver(api MessageAPI) *Receiver {
	return &Receiver{
		api:   api,
		state: initialReceiverState(),
	}
}

func initialReceiverState() ReceiverState {
	return ReceiverState{Status: ReceiveIdle, BurnStatus: BurnIdle}
}

func (r *Receiver) State() ReceiverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Receiver) Reset() {
	r.update(func(st *ReceiverState) { *st = initialReceiverState() })
}

func (r *Receiver) update(fn func(*ReceiverState)) {
	r.mu.Lock()
	fn(&r.state)
	r.mu.Unlock()
}

func (r *Receiver) fail(err error) error {
	r.update(func(st *ReceiverState) {
		st.Status = ReceiveError
		st.Err = err
	})
	return err
}

// Receive fetches, decrypts and burns the message. The burn only happens
// after a successful decrypt; a failed burn is reported in the result and
// does not withhold the plaintext.
func (r *Receiver) Receive(ctx context.Context, id, secret string) (*ReceiveResult, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if secret == "" {
		return nil, ErrMissingSecret
	}

	r.update(func(st *ReceiverState) {
		*st = initialReceiverState()
		st.Status = ReceiveLoading
	})

	msg, err := r.api.GetMessage(ctx, id)
	if err != nil {
		return nil, r.fail(classifyFetchError(err))
	}

	r.update(func(st *ReceiverState) {
		st.Status = ReceiveDecrypting
		st.EncryptedData = msg.EncryptedData
		st.ExpiresAt = msg.ExpiresAt
	})

	key, err := crypto.DeriveKey(secret)
	if err != nil {
		return nil, r.fail(ErrWrongKey)
	}
	plaintext, err := crypto.Decode(msg.EncryptedData, key)
	if err != nil {
		return nil, r.fail(ErrWrongKey)
	}

	r.update(func(st *ReceiverState) {
		st.Status = ReceiveReady
		st.Err = nil
		st.BurnStatus = BurnDeleting
	})

	res := &ReceiveResult{Plaintext: plaintext, ExpiresAt: msg.ExpiresAt}

	if err := r.api.DeleteMessage(ctx, id); err != nil {
		res.BurnErr = fmt.Errorf("%w: %w", ErrBurnFailed, err)
		r.update(func(st *ReceiverState) {
			st.BurnStatus = BurnError
			st.BurnErr = res.BurnErr
		})
		return res, nil
	}

	r.update(func(st *ReceiverState) { st.BurnStatus = BurnDeleted })
	return res, nil
}

func classifyFetchError(err error) error {
	switch client.StatusCode(err) {
	case http.StatusNotFound, http.StatusGone:
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrServer, err)
}
