// Package crypto implements the client-side envelope used by the relay.
//
// A human secret (a password, or a random token from GenerateSecret) is
// stretched into a 256-bit Key with PBKDF2-HMAC-SHA256. Encode prefixes the
// plaintext with a fixed marker and encrypts it in the OpenSSL "Salted__"
// passphrase format (EVP_BytesToKey with MD5, AES-256-CBC, PKCS#7), which is
// what CryptoJS.AES produces when handed a string key. Decode reverses this
// and reports ErrInvalidKey for every failure.
//
// # Known weaknesses
//
// The PBKDF2 salt is static and public, and the iteration count is low. This
// lets a password typed independently by the recipient reproduce the key
// without carrying a per-message salt, but it does not slow an offline
// dictionary attack against a weak password.
//
// CBC has no authentication tag. The marker is the only signal that the key
// was right; a tampered ciphertext that still decrypts to something starting
// with the marker is not detected. An AEAD mode with a per-message salt would
// require changing the sharing protocol.
package crypto
