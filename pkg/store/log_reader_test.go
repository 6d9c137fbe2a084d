package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, pairs ...[2]string) (string, []*IndexEntry) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "active.data")
	w, err := NewLogWriter(LogWriterConfig{FilePath: path})
	require.NoError(t, err)

	var entries []*IndexEntry
	for _, p := range pairs {
		e, err := w.Put([]byte(p[0]), []byte(p[1]))
		require.NoError(t, err)
		entries = append(entries, e)
	}
	require.NoError(t, w.Close())
	return path, entries
}

func TestNewLogReader_NonExistentFile(t *testing.T) {
	_, err := NewLogReader(LogReaderConfig{FilePath: filepath.Join(t.TempDir(), "missing.data")})
	assert.Error(t, err)
}

func TestLogReader_ReadNextSequence(t *testing.T) {
	path, entries := writeLog(t, [2]string{"a", "1"}, [2]string{"b", "22"})

	r, err := NewLogReader(LogReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, "a", string(rec.Key))
	assert.Equal(t, entries[1].Offset, r.Offset())

	rec, err = r.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, "22", string(rec.Value))

	_, err = r.ReadNext()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLogReader_StartOffsetAndSeek(t *testing.T) {
	path, entries := writeLog(t, [2]string{"a", "1"}, [2]string{"b", "2"})

	r, err := NewLogReader(LogReaderConfig{FilePath: path, StartOffset: entries[1].Offset})
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, "b", string(rec.Key))

	require.NoError(t, r.Seek(0))
	rec, err = r.ReadNext()
	require.NoError(t, err)
	assert.Equal(t, "a", string(rec.Key))
}

func TestLogReader_ReadAt(t *testing.T) {
	path, entries := writeLog(t, [2]string{"a", "1"}, [2]string{"b", "2"}, [2]string{"c", "3"})

	r, err := NewLogReader(LogReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.ReadAt(entries[2].Offset)
	require.NoError(t, err)
	assert.Equal(t, "c", string(rec.Key))

	rec, err = r.ReadAt(entries[0].Offset)
	require.NoError(t, err)
	assert.Equal(t, "a", string(rec.Key))

	_, err = r.ReadAt(entries[2].Offset + int64(entries[2].Size))
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestLogReader_Iterator(t *testing.T) {
	path, entries := writeLog(t, [2]string{"a", "1"}, [2]string{"b", "2"})

	r, err := NewLogReader(LogReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()

	it := r.Iterator()
	var offsets []int64
	for it.Next() {
		offsets = append(offsets, it.Offset())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{entries[0].Offset, entries[1].Offset}, offsets)
}

func TestLogReader_TornTail(t *testing.T) {
	path, entries := writeLog(t, [2]string{"a", "1"}, [2]string{"b", "2"})
	require.NoError(t, os.Truncate(path, entries[1].Offset+5))

	r, err := NewLogReader(LogReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadNext()
	require.NoError(t, err)

	_, err = r.ReadNext()
	assert.True(t, errors.Is(err, ErrCorruption), "got %v", err)
	assert.Equal(t, entries[1].Offset, r.Offset(), "offset stays at the start of the bad record")

	require.NoError(t, r.Seek(entries[1].Offset))
	it := r.Iterator()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrCorruption)
}
