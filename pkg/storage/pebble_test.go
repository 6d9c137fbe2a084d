package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openPebble(t *testing.T) *PebbleStorage {
	t.Helper()
	s, err := NewPebbleStorage(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPebbleStorage_CRUD(t *testing.T) {
	s := openPebble(t)

	require.NoError(t, s.Put([]byte("tt1"), []byte("one")))
	got, err := s.Get([]byte("tt1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	require.NoError(t, s.Put([]byte("tt1"), []byte("uno")))
	got, err = s.Get([]byte("tt1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("uno"), got)

	require.NoError(t, s.Delete([]byte("tt1")))
	_, err = s.Get([]byte("tt1"))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete([]byte("tt1")), ErrNotFound)
	assert.Error(t, s.Put(nil, []byte("x")))
}

func TestPebbleStorage_BatchAndScan(t *testing.T) {
	s := openPebble(t)

	require.NoError(t, s.PutBatch([]KeyValue{
		{Key: []byte("a:1"), Value: []byte("1")},
		{Key: []byte("a:2"), Value: []byte("2")},
		{Key: []byte("b:1"), Value: []byte("3")},
	}))

	var keys []string
	require.NoError(t, s.Scan([]byte("a:"), func(k, v []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	assert.Equal(t, []string{"a:1", "a:2"}, keys)

	count := 0
	require.NoError(t, s.Scan(nil, func(k, v []byte) error {
		count++
		return nil
	}))
	assert.Equal(t, 3, count)
}

func TestPebbleStorage_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	s, err := NewPebbleStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.Put([]byte("k"), []byte("v")))
	require.NoError(t, s.Close())

	s, err = NewPebbleStorage(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("b"), prefixUpperBound([]byte("a")))
	assert.Equal(t, []byte{0x01}, prefixUpperBound([]byte{0x00, 0xff}))
	assert.Nil(t, prefixUpperBound([]byte{0xff, 0xff}))
}

func TestPebbleStorage_Stats(t *testing.T) {
	s := openPebble(t)
	assert.Equal(t, 0, s.Stats().Keys)

	for _, k := range []string{"tt1", "tt2", "tt3"} {
		require.NoError(t, s.Put([]byte(k), []byte("value-"+k)))
	}
	require.NoError(t, s.Delete([]byte("tt2")))

	st := s.Stats()
	assert.Equal(t, 2, st.Keys)
	assert.Greater(t, st.DataSize, int64(0))
}
