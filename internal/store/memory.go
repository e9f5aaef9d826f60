package store

import (
	"context"
	"sync"
	"time"

	"otm.relay/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	messages    map[string]models.Message
	mu          sync.RWMutex
	now         Clock
	stopPurging context.CancelFunc
}

func NewMemoryStore(opts Options) *MemoryStore {
	opts = opts.withDefaults()
	s := &MemoryStore{
		messages: make(map[string]models.Message),
		now:      opts.Clock,
	}
	s.stopPurging = startPurger(s, opts)
	return s
}

func (s *MemoryStore) Create(ctx context.Context, encryptedData string, expiresAt *time.Time) (string, error) {
	if encryptedData == "" {
		return "", ErrInvalidMessage
	}

	msg := models.Message{
		ID:            newID(),
		EncryptedData: encryptedData,
		ExpiresAt:     copyTime(expiresAt),
		CreatedAt:     s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[msg.ID] = msg
	return msg.ID, nil
}

func (s *MemoryStore) Fetch(ctx context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	msg, ok := s.messages[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	if msg.ExpiredAt(s.now()) {
		s.mu.Lock()
		delete(s.messages, id)
		s.mu.Unlock()
		return nil, ErrExpired
	}

	msg.ExpiresAt = copyTime(msg.ExpiresAt)
	return &msg, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	if s.stopPurging != nil {
		s.stopPurging()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make(map[string]models.Message)
	return nil
}

func (s *MemoryStore) purgeExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, msg := range s.messages {
		if msg.ExpiresAt != nil && msg.ExpiresAt.Before(before) {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := t.UTC()
	return &c
}
