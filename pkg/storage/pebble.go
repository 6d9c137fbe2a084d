package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// PebbleStorage is a Backend on top of a single Pebble database.
type PebbleStorage struct {
	db        *pebble.DB
	closeOnce sync.Once
	closeErr  error
}

var _ Backend = (*PebbleStorage)(nil)

// NewPebbleStorage opens (or creates) the database at path.
func NewPebbleStorage(path string) (*PebbleStorage, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &PebbleStorage{db: db}, nil
}

func (s *PebbleStorage) Get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	// data is only valid until closer.Close
	return bytes.Clone(data), nil
}

func (s *PebbleStorage) Put(key, value []byte) error {
	if len(key) == 0 {
		return errors.New("storage: empty key")
	}
	return s.db.Set(key, value, pebble.Sync)
}

func (s *PebbleStorage) PutBatch(pairs []KeyValue) error {
	if len(pairs) == 0 {
		return nil
	}
	b := s.db.NewBatch()
	defer b.Close()

	for _, kv := range pairs {
		if len(kv.Key) == 0 {
			return errors.New("storage: empty key")
		}
		if err := b.Set(kv.Key, kv.Value, nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

func (s *PebbleStorage) Delete(key []byte) error {
	if _, err := s.Get(key); err != nil {
		return err
	}
	return s.db.Delete(key, pebble.Sync)
}

func (s *PebbleStorage) Scan(prefix []byte, fn func(key, value []byte) error) error {
	opts := &pebble.IterOptions{}
	if len(prefix) > 0 {
		opts.LowerBound = prefix
		opts.UpperBound = prefixUpperBound(prefix)
	}

	iter, err := s.db.NewIter(opts)
	if err != nil {
		return err
	}

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())); err != nil {
			_ = iter.Close()
			return err
		}
	}
	return iter.Close()
}

// Stats counts live keys with a key-only pass and takes the size from
// Pebble's disk usage metric.
func (s *PebbleStorage) Stats() Stats {
	st := Stats{DataSize: int64(s.db.Metrics().DiskSpaceUsage())}
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return st
	}
	for iter.First(); iter.Valid(); iter.Next() {
		st.Keys++
	}
	_ = iter.Close()
	return st
}

// Close closes the database. Pebble panics on a second Close, so repeated
// calls return the first result.
func (s *PebbleStorage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, or nil when the prefix is all 0xff.
func prefixUpperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
