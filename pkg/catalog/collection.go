package catalog

import (
	"errors"
	"sort"
	"sync"

	"github.com/ssargent/mediashelf/pkg/codec"
	"github.com/ssargent/mediashelf/pkg/storage"
)

// collection is one keyed record set on a storage backend. Records are
// stored as sequence envelopes so insertion order survives engines whose
// scan order is arbitrary.
//
// mu is held for the whole read-modify-write span of every mutation and for
// the duration of snapshot scans.
type collection[T any] struct {
	name    string
	backend storage.Backend

	mu  sync.Mutex
	seq uint64
}

func newCollection[T any](name string, backend storage.Backend) (*collection[T], error) {
	c := &collection[T]{name: name, backend: backend}

	err := backend.Scan(nil, func(_, value []byte) error {
		env, err := codec.DecodeEnvelope[T](value)
		if err != nil {
			return err
		}
		if env.Seq > c.seq {
			c.seq = env.Seq
		}
		return nil
	})
	if err != nil {
		return nil, c.storageErr("load", err)
	}
	return c, nil
}

// snapshot returns every record in insertion order. Caller holds mu.
func (c *collection[T]) snapshot() ([]codec.Envelope[T], error) {
	var out []codec.Envelope[T]
	err := c.backend.Scan(nil, func(_, value []byte) error {
		env, err := codec.DecodeEnvelope[T](value)
		if err != nil {
			return err
		}
		out = append(out, env)
		return nil
	})
	if err != nil {
		return nil, c.storageErr("scan", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (c *collection[T]) list(keep func(T) bool) ([]T, error) {
	c.mu.Lock()
	envs, err := c.snapshot()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(envs))
	for _, env := range envs {
		if keep == nil || keep(env.Data) {
			items = append(items, env.Data)
		}
	}
	return items, nil
}

// get loads one record. Caller holds mu when the result feeds a write.
func (c *collection[T]) get(id string) (codec.Envelope[T], error) {
	raw, err := c.backend.Get([]byte(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return codec.Envelope[T]{}, ErrNotFound
		}
		return codec.Envelope[T]{}, c.storageErr("get", err)
	}
	env, err := codec.DecodeEnvelope[T](raw)
	if err != nil {
		return codec.Envelope[T]{}, c.storageErr("decode", err)
	}
	return env, nil
}

func (c *collection[T]) exists(id string) (bool, error) {
	_, err := c.get(id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// put writes a record under its existing sequence number, or the next one
// when seq is zero. Caller holds mu.
func (c *collection[T]) put(id string, seq uint64, data T) error {
	if seq == 0 {
		seq = c.seq + 1
	}
	value, err := codec.EncodeEnvelope(seq, data)
	if err != nil {
		return c.storageErr("encode", err)
	}
	if err := c.backend.Put([]byte(id), value); err != nil {
		return c.storageErr("put", err)
	}
	if seq > c.seq {
		c.seq = seq
	}
	return nil
}

// putAll appends records in one batch with consecutive sequence numbers.
// Caller holds mu.
func (c *collection[T]) putAll(ids []string, items []T) error {
	pairs := make([]storage.KeyValue, 0, len(items))
	next := c.seq
	for i, item := range items {
		next++
		value, err := codec.EncodeEnvelope(next, item)
		if err != nil {
			return c.storageErr("encode", err)
		}
		pairs = append(pairs, storage.KeyValue{Key: []byte(ids[i]), Value: value})
	}
	if err := c.backend.PutBatch(pairs); err != nil {
		return c.storageErr("put batch", err)
	}
	c.seq = next
	return nil
}

// remove deletes a record and returns what was stored. Caller holds mu.
func (c *collection[T]) remove(id string) (T, error) {
	env, err := c.get(id)
	if err != nil {
		return env.Data, err
	}
	if err := c.backend.Delete([]byte(id)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return env.Data, ErrNotFound
		}
		return env.Data, c.storageErr("delete", err)
	}
	return env.Data, nil
}

func (c *collection[T]) close() error {
	return c.backend.Close()
}

func (c *collection[T]) storageErr(op string, err error) error {
	return &StorageError{Collection: c.name, Op: op, Err: err}
}
