package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// StaticSalt is public and shared by every message.
	StaticSalt = "OTM_STATIC_SALT_V1"

	// Iterations is the PBKDF2 work factor.
	Iterations = 1000

	// KeySize is the derived key length in bytes.
	KeySize = 32
)

var ErrEmptySecret = errors.New("secret must not be empty")

// Key is a derived symmetric key. It only ever lives in memory.
type Key [KeySize]byte

// passphrase is the lowercase hex form fed to the OpenSSL KDF.
func (k Key) passphrase() []byte {
	dst := make([]byte, hex.EncodedLen(KeySize))
	hex.Encode(dst, k[:])
	return dst
}

// DeriveKey turns a password or generated token into a Key. The result is
// deterministic for a given secret.
func DeriveKey(secret string) (Key, error) {
	var key Key
	if secret == "" {
		return key, ErrEmptySecret
	}

	copy(key[:], pbkdf2.Key([]byte(secret), []byte(StaticSalt), Iterations, KeySize, sha256.New))
	return key, nil
}
