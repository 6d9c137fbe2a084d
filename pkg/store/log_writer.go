package store

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/mediashelf/pkg/codec"
	"github.com/ssargent/mediashelf/pkg/storage"
)

// LogWriter handles append-only writes to the active data file
type LogWriter struct {
	file       *os.File
	writer     *bufio.Writer
	codec      *codec.RecordCodec
	fsyncTimer *time.Timer
	config     LogWriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset
	dirty      bool  // flushed but not yet fsynced
}

// NewLogWriter creates a new log writer with the given configuration
func NewLogWriter(config LogWriterConfig) (*LogWriter, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if config.BufferSize <= 0 {
		config.BufferSize = 64 * 1024
	}

	w := &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, config.BufferSize),
		codec:  codec.NewRecordCodec(),
		config: config,
		offset: offset,
	}

	if config.FsyncInterval > 0 {
		w.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			w.mutex.Lock()
			defer w.mutex.Unlock()
			_ = w.sync()
		})
		w.fsyncTimer.Stop()
	}

	return w, nil
}

// Put appends a key-value pair to the log file and returns its index entry.
// The record is flushed to the OS before returning so readers see it.
func (w *LogWriter) Put(key, value []byte) (*IndexEntry, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	entry, err := w.append(key, value)
	if err != nil {
		return nil, err
	}
	if err := w.commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// PutBatch appends all pairs and commits them with a single flush and sync.
func (w *LogWriter) PutBatch(pairs []storage.KeyValue) ([]*IndexEntry, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	entries := make([]*IndexEntry, 0, len(pairs))
	for _, kv := range pairs {
		entry, err := w.append(kv.Key, kv.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := w.commit(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (w *LogWriter) append(key, value []byte) (*IndexEntry, error) {
	ts := uint64(time.Now().UnixNano())
	data, err := w.codec.EncodeAt(key, value, ts)
	if err != nil {
		return nil, err
	}

	n, err := w.writer.Write(data)
	if err != nil {
		return nil, err
	}

	entry := &IndexEntry{
		Offset:    w.offset,
		Size:      uint32(n),
		Timestamp: ts,
	}
	w.offset += int64(n)
	return entry, nil
}

// commit makes buffered records visible to readers and, depending on the
// fsync interval, durable now or on the next timer tick.
func (w *LogWriter) commit() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if w.config.FsyncInterval == 0 {
		return w.file.Sync()
	}
	if !w.dirty {
		w.dirty = true
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}
	return nil
}

// Sync forces a fsync to disk
func (w *LogWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *LogWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	w.dirty = false
	return w.file.Sync()
}

// Close closes the log writer and ensures all data is synced
func (w *LogWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// Size returns the current size of the log file
func (w *LogWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}
