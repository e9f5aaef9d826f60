package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Marker is prepended to every plaintext before encryption. Its presence
	// after decryption is the only evidence that the key was correct.
	Marker = "OTM_SECURE_MSG::"

	saltHeader = "Salted__"
	saltSize   = 8
	aesKeySize = 32
)

// ErrInvalidKey is the single failure reported by Decode, whatever went wrong.
var ErrInvalidKey = errors.New("wrong password / invalid key")

// Encode wraps plaintext with Marker and encrypts it under key. The result is
// base64 text that carries its own salt.
func Encode(plaintext string, key Key) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt generation failed: %w", err)
	}
	return encodeWithSalt(plaintext, key, salt)
}

func encodeWithSalt(plaintext string, key Key, salt []byte) (string, error) {
	aesKey, iv := bytesToKey(key.passphrase(), salt)

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", fmt.Errorf("cipher creation failed: %w", err)
	}

	data := pad([]byte(Marker+plaintext), aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(data, data)

	out := make([]byte, 0, len(saltHeader)+saltSize+len(data))
	out = append(out, saltHeader...)
	out = append(out, salt...)
	out = append(out, data...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decode decrypts ciphertext under key and strips Marker. Malformed input,
// a wrong key and a missing marker all yield ErrInvalidKey.
func Decode(ciphertext string, key Key) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", ErrInvalidKey
	}

	if len(raw) < len(saltHeader)+saltSize || !bytes.HasPrefix(raw, []byte(saltHeader)) {
		return "", ErrInvalidKey
	}
	salt := raw[len(saltHeader) : len(saltHeader)+saltSize]
	body := raw[len(saltHeader)+saltSize:]
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", ErrInvalidKey
	}

	aesKey, iv := bytesToKey(key.passphrase(), salt)
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", ErrInvalidKey
	}

	data := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(data, body)

	data, ok := unpad(data, aes.BlockSize)
	if !ok || !utf8.Valid(data) {
		return "", ErrInvalidKey
	}

	plaintext, ok := strings.CutPrefix(string(data), Marker)
	if !ok {
		return "", ErrInvalidKey
	}
	return plaintext, nil
}

// bytesToKey is OpenSSL's EVP_BytesToKey with MD5 and a single round,
// producing an AES-256 key followed by a CBC IV.
func bytesToKey(passphrase, salt []byte) (key, iv []byte) {
	var out, prev []byte
	for len(out) < aesKeySize+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:aesKeySize], out[aesKeySize : aesKeySize+aes.BlockSize]
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
