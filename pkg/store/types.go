package store

import (
	"time"

	"github.com/ssargent/mediashelf/pkg/codec"
	"github.com/ssargent/mediashelf/pkg/storage"
)

// IndexEntry represents the location of a key-value pair in the log
type IndexEntry struct {
	Offset    int64  // Byte offset within the file
	Size      uint32 // Size of the record in bytes
	Timestamp uint64 // Record timestamp
}

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath      string        // Path to the active data file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
}

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath    string // Path to the data file
	StartOffset int64  // Offset to start reading from
}

// KVStoreConfig holds configuration for the key-value store
type KVStoreConfig struct {
	DataDir       string        // Directory for data files
	FsyncInterval time.Duration // Fsync interval for durability
}

// RecordIterator provides streaming access to records
type RecordIterator interface {
	Next() bool
	Record() *codec.Record
	Offset() int64
	Err() error
}

// RecoveryResult describes what Open found while validating the log.
// RecordsTruncated is 1 when the log was cut at a corrupt record; the
// records after it are not counted, FileSizeBefore-FileSizeAfter is the
// number of bytes dropped.
type RecoveryResult struct {
	RecordsValidated int64
	RecordsTruncated int64
	FileSizeBefore   int64
	FileSizeAfter    int64
	RecoveryTime     time.Duration
}

// Errors
var (
	ErrKeyNotFound = &KVError{Message: "key not found", Err: storage.ErrNotFound}
	ErrInvalidKey  = &KVError{Message: "invalid key"}
	ErrCorruption  = &KVError{Message: "data corruption detected"}
	ErrClosed      = &KVError{Message: "store is not open"}
)

// KVError represents a key-value store error
type KVError struct {
	Message string
	Err     error
}

func (e *KVError) Error() string {
	return e.Message
}

func (e *KVError) Unwrap() error {
	return e.Err
}
