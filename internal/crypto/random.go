package crypto

import (
	"crypto/rand"
	"encoding/hex"
)

const secretLength = 32

// GenerateSecret returns a random 256-bit token, hex encoded. It is used in
// place of a password when the secret travels in the link fragment.
func GenerateSecret() string {
	bytes := make([]byte, secretLength)
	if _, err := rand.Read(bytes); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(bytes)
}
