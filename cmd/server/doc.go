// Command server runs the one-time message relay.
//
// The relay stores opaque ciphertext under a random id, hands it out on
// request and deletes it when the reader burns it. It never sees keys or
// plaintext. Configuration comes from an optional YAML file given with
// -config, an optional .env file, and environment variables.
package main
