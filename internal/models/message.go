package models

import "time"

type Message struct {
	ID            string     `json:"id"`
	EncryptedData string     `json:"encryptedData"` // opaque client ciphertext
	ExpiresAt     *time.Time `json:"expiresAt"`     // nil means no expiry
	CreatedAt     time.Time  `json:"createdAt"`
}

// ExpiredAt reports whether the message is past its expiry at now.
func (m *Message) ExpiredAt(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}
