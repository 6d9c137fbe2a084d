// Package storage defines the key/value contract the catalog collections
// are persisted through, and provides the Pebble-backed engine.
package storage

import (
	"errors"
)

// ErrNotFound is returned by Get and Delete when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// KeyValue is a single pair for batch writes and scans.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Backend is a durable key/value engine holding one collection.
// Implementations must be safe for concurrent use.
type Backend interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	// PutBatch applies all pairs as a single durable write.
	PutBatch(pairs []KeyValue) error
	Delete(key []byte) error
	// Scan calls fn for every live pair whose key starts with prefix.
	// Returning an error from fn stops the scan and returns that error.
	Scan(prefix []byte, fn func(key, value []byte) error) error
	// Stats reports the live key count and on-disk size.
	Stats() Stats
	Close() error
}

// Stats describes how much a backend holds.
type Stats struct {
	Keys     int
	DataSize int64 // bytes on disk
}

// Engine names accepted by configuration.
const (
	EngineLog    = "log"
	EnginePebble = "pebble"
)
