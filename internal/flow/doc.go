// Package flow sequences the sender and receiver sides of a one-time
// message: encryption and upload on one side, download, decryption and burn
// on the other. Each flow keeps its progress in an explicit state container
// that a caller may read at any time.
package flow
