package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ssargent/mediashelf/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, dir string) *KVStore {
	t.Helper()
	kv, _, err := OpenKVStore(KVStoreConfig{DataDir: dir})
	require.NoError(t, err)
	return kv
}

func TestKVStore_BasicOperations(t *testing.T) {
	kv := openStore(t, t.TempDir())
	defer kv.Close()

	key := []byte("tt0111161")
	require.NoError(t, kv.Put(key, []byte("v1")))

	got, err := kv.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	require.NoError(t, kv.Put(key, []byte("v2")))
	got, err = kv.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	_, err = kv.Get([]byte("missing"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Delete(key))
	_, err = kv.Get(key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, kv.Delete(key), storage.ErrNotFound)
}

func TestKVStore_InvalidInput(t *testing.T) {
	kv := openStore(t, t.TempDir())
	defer kv.Close()

	assert.ErrorIs(t, kv.Put(nil, []byte("v")), ErrInvalidKey)
	assert.ErrorIs(t, kv.Put([]byte("k"), nil), ErrInvalidKey)
	assert.ErrorIs(t, kv.PutBatch([]storage.KeyValue{{Key: []byte("k")}}), ErrInvalidKey)
	assert.ErrorIs(t, kv.Delete(nil), ErrInvalidKey)
}

func TestKVStore_Closed(t *testing.T) {
	kv := openStore(t, t.TempDir())
	require.NoError(t, kv.Close())
	require.NoError(t, kv.Close())

	_, err := kv.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, kv.Put([]byte("k"), []byte("v")), ErrClosed)
}

func TestKVStore_ReopenRebuildsIndex(t *testing.T) {
	dir := t.TempDir()

	kv := openStore(t, dir)
	require.NoError(t, kv.Put([]byte("a"), []byte("1")))
	require.NoError(t, kv.Put([]byte("b"), []byte("2")))
	require.NoError(t, kv.Put([]byte("a"), []byte("3")))
	require.NoError(t, kv.Delete([]byte("b")))
	require.NoError(t, kv.Close())

	kv = openStore(t, dir)
	defer kv.Close()

	got, err := kv.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "3", string(got))

	_, err = kv.Get([]byte("b"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, 1, kv.Stats().Keys)
}

func TestKVStore_PutBatchAndScan(t *testing.T) {
	kv := openStore(t, t.TempDir())
	defer kv.Close()

	require.NoError(t, kv.PutBatch([]storage.KeyValue{
		{Key: []byte("m:1"), Value: []byte("1")},
		{Key: []byte("m:2"), Value: []byte("2")},
		{Key: []byte("r:1"), Value: []byte("3")},
	}))
	require.NoError(t, kv.PutBatch(nil))

	var keys []string
	require.NoError(t, kv.Scan([]byte("m:"), func(k, v []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	sort.Strings(keys)
	assert.Equal(t, []string{"m:1", "m:2"}, keys)

	stop := errors.New("stop")
	err := kv.Scan(nil, func(k, v []byte) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestKVStore_CrashRecovery_TornTail(t *testing.T) {
	dir := t.TempDir()

	kv := openStore(t, dir)
	require.NoError(t, kv.Put([]byte("a"), []byte("1")))
	require.NoError(t, kv.Put([]byte("b"), []byte("2")))
	size := kv.Stats().DataSize
	require.NoError(t, kv.Close())

	// simulate a torn write after the last good record
	f, err := os.OpenFile(filepath.Join(dir, "active.data"), os.O_WRONLY|os.O_APPEND, 0600)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x00})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	kv, res, err := OpenKVStore(KVStoreConfig{DataDir: dir})
	require.NoError(t, err)
	defer kv.Close()

	assert.Equal(t, int64(2), res.RecordsValidated)
	assert.Equal(t, int64(1), res.RecordsTruncated)
	assert.Equal(t, size, res.FileSizeAfter)
	assert.Equal(t, size+6, res.FileSizeBefore)

	got, err := kv.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))

	require.NoError(t, kv.Put([]byte("c"), []byte("3")))
	got, err = kv.Get([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, "3", string(got))
}

func TestKVStore_CrashRecovery_CorruptFirstRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "active.data"), []byte("garbage-garbage-garbage!"), 0600))

	kv, res, err := OpenKVStore(KVStoreConfig{DataDir: dir})
	require.NoError(t, err)
	defer kv.Close()

	assert.Equal(t, int64(0), res.FileSizeAfter)
	assert.Equal(t, 0, kv.Stats().Keys)
}

func TestKVStore_ConcurrentReadWrite(t *testing.T) {
	kv, _, err := OpenKVStore(KVStoreConfig{DataDir: t.TempDir(), FsyncInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer kv.Close()

	const goroutines = 10
	const ops = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				key := []byte(fmt.Sprintf("key_%d_%d", id, j))
				value := fmt.Sprintf("value_%d_%d", id, j)
				if err := kv.Put(key, []byte(value)); err != nil {
					t.Errorf("put %s: %v", key, err)
					continue
				}
				got, err := kv.Get(key)
				if err != nil || string(got) != value {
					t.Errorf("read back %s: %q, %v", key, got, err)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, goroutines*ops, kv.Stats().Keys)
}
