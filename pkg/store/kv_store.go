package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/mediashelf/pkg/storage"
)

// KVStore is a log-structured key-value store: one append-only data file,
// tombstones for deletes, and an in-memory hash index rebuilt at open.
type KVStore struct {
	config   KVStoreConfig
	writer   *LogWriter
	reader   *LogReader
	index    *HashIndex
	dataFile string
	mutex    sync.RWMutex
	isOpen   bool
}

var _ storage.Backend = (*KVStore)(nil)

// NewKVStore creates a new key-value store instance
func NewKVStore(config KVStoreConfig) (*KVStore, error) {
	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, err
	}

	return &KVStore{
		config:   config,
		dataFile: filepath.Join(config.DataDir, "active.data"),
		index:    NewHashIndex(),
	}, nil
}

// OpenKVStore creates and opens a store in one step.
func OpenKVStore(config KVStoreConfig) (*KVStore, *RecoveryResult, error) {
	kv, err := NewKVStore(config)
	if err != nil {
		return nil, nil, err
	}
	res, err := kv.Open()
	if err != nil {
		return nil, nil, err
	}
	return kv, res, nil
}

// Open validates the data file, truncates a corrupted tail, and rebuilds
// the index.
func (kv *KVStore) Open() (*RecoveryResult, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if kv.isOpen {
		return &RecoveryResult{}, nil
	}

	recovery, err := kv.validateLogFile(kv.dataFile)
	if err != nil {
		return nil, err
	}

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      kv.dataFile,
		FsyncInterval: kv.config.FsyncInterval,
		BufferSize:    64 * 1024,
	})
	if err != nil {
		return nil, err
	}

	reader, err := NewLogReader(LogReaderConfig{FilePath: kv.dataFile})
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	if err := kv.index.BuildFromLog(reader); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		return nil, err
	}

	kv.writer = writer
	kv.reader = reader
	kv.isOpen = true
	return recovery, nil
}

// Get retrieves a value for a key
func (kv *KVStore) Get(key []byte) ([]byte, error) {
	kv.mutex.RLock()
	defer kv.mutex.RUnlock()

	if !kv.isOpen {
		return nil, ErrClosed
	}
	return kv.getLocked(key)
}

func (kv *KVStore) getLocked(key []byte) ([]byte, error) {
	entry, exists := kv.index.Get(key)
	if !exists {
		return nil, ErrKeyNotFound
	}

	record, err := kv.reader.ReadAt(entry.Offset)
	if err != nil {
		return nil, err
	}
	if record.IsTombstone() {
		return nil, ErrKeyNotFound
	}
	return record.Value, nil
}

// Put stores a key-value pair. An empty value is rejected since it would
// be indistinguishable from a tombstone.
func (kv *KVStore) Put(key, value []byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrClosed
	}
	if len(key) == 0 || len(value) == 0 {
		return ErrInvalidKey
	}

	entry, err := kv.writer.Put(key, value)
	if err != nil {
		return err
	}
	kv.index.Put(key, entry)
	return nil
}

// PutBatch appends every pair and syncs once.
func (kv *KVStore) PutBatch(pairs []storage.KeyValue) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrClosed
	}
	for _, p := range pairs {
		if len(p.Key) == 0 || len(p.Value) == 0 {
			return ErrInvalidKey
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	entries, err := kv.writer.PutBatch(pairs)
	if err != nil {
		return err
	}
	for i, p := range pairs {
		kv.index.Put(p.Key, entries[i])
	}
	return nil
}

// Delete removes a key by appending a tombstone
func (kv *KVStore) Delete(key []byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if _, exists := kv.index.Get(key); !exists {
		return ErrKeyNotFound
	}

	if _, err := kv.writer.Put(key, nil); err != nil {
		return err
	}
	kv.index.Delete(key)
	return nil
}

// Scan calls fn for every live key with the given prefix. Keys are visited
// in no particular order.
func (kv *KVStore) Scan(prefix []byte, fn func(key, value []byte) error) error {
	kv.mutex.RLock()
	defer kv.mutex.RUnlock()

	if !kv.isOpen {
		return ErrClosed
	}

	for key, entry := range kv.index.EntriesWithPrefix(string(prefix)) {
		record, err := kv.reader.ReadAt(entry.Offset)
		if err != nil {
			return err
		}
		if err := fn([]byte(key), record.Value); err != nil {
			return err
		}
	}
	return nil
}

// Sync forces buffered records to disk
func (kv *KVStore) Sync() error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return ErrClosed
	}
	return kv.writer.Sync()
}

// Close shuts down the store
func (kv *KVStore) Close() error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return nil
	}
	kv.isOpen = false

	werr := kv.writer.Close()
	rerr := kv.reader.Close()
	return errors.Join(werr, rerr)
}

// validateLogFile reads the log until the first bad record and truncates
// the file there. Only a corrupted tail is recoverable; everything before it
// is kept.
func (kv *KVStore) validateLogFile(filePath string) (*RecoveryResult, error) {
	start := time.Now()

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{RecoveryTime: time.Since(start)}, nil
		}
		return nil, err
	}
	sizeBefore := info.Size()

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var validated int64
	var corrupted bool
	for {
		_, err := reader.ReadNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, ErrCorruption) {
				corrupted = true
				break
			}
			return nil, err
		}
		validated++
	}

	res := &RecoveryResult{
		RecordsValidated: validated,
		FileSizeBefore:   sizeBefore,
		FileSizeAfter:    sizeBefore,
	}

	if corrupted {
		lastValid := reader.Offset()
		if err := os.Truncate(filePath, lastValid); err != nil {
			return nil, err
		}
		res.FileSizeAfter = lastValid
		res.RecordsTruncated = 1
	}

	res.RecoveryTime = time.Since(start)
	return res, nil
}

// Stats returns the live key count and the log size. The log still holds
// overwritten values and tombstones, so DataSize is an upper bound.
func (kv *KVStore) Stats() storage.Stats {
	kv.mutex.RLock()
	defer kv.mutex.RUnlock()

	if !kv.isOpen {
		return storage.Stats{}
	}

	return storage.Stats{
		Keys:     kv.index.Size(),
		DataSize: kv.writer.Size(),
	}
}
