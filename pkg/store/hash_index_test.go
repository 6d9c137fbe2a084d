package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIndex_PutGetDelete(t *testing.T) {
	idx := NewHashIndex()

	entry := &IndexEntry{Offset: 100, Size: 50, Timestamp: 1}
	idx.Put([]byte("tt1"), entry)

	got, ok := idx.Get([]byte("tt1"))
	require.True(t, ok)
	assert.Equal(t, entry, got)

	idx.Put([]byte("tt1"), &IndexEntry{Offset: 200, Size: 60, Timestamp: 2})
	got, _ = idx.Get([]byte("tt1"))
	assert.Equal(t, int64(200), got.Offset)
	assert.Equal(t, 1, idx.Size())

	idx.Delete([]byte("tt1"))
	_, ok = idx.Get([]byte("tt1"))
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Size())
}

func TestHashIndex_EntriesWithPrefix(t *testing.T) {
	idx := NewHashIndex()
	for _, k := range []string{"review:1", "review:2", "media:1"} {
		idx.Put([]byte(k), &IndexEntry{})
	}

	got := idx.EntriesWithPrefix("review:")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "review:1")
	assert.Contains(t, got, "review:2")

	assert.Len(t, idx.EntriesWithPrefix(""), 3)
	assert.Empty(t, idx.EntriesWithPrefix("nope"))
}

func TestHashIndex_BuildFromLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active.data")
	w, err := NewLogWriter(LogWriterConfig{FilePath: path})
	require.NoError(t, err)

	_, err = w.Put([]byte("a"), []byte("1"))
	require.NoError(t, err)
	second, err := w.Put([]byte("b"), []byte("2"))
	require.NoError(t, err)
	_, err = w.Put([]byte("a"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewLogReader(LogReaderConfig{FilePath: path})
	require.NoError(t, err)
	defer r.Close()

	idx := NewHashIndex()
	require.NoError(t, idx.BuildFromLog(r))

	assert.Equal(t, 1, idx.Size())
	_, ok := idx.Get([]byte("a"))
	assert.False(t, ok, "tombstone should remove key")

	got, ok := idx.Get([]byte("b"))
	require.True(t, ok)
	assert.Equal(t, second.Offset, got.Offset)
	assert.Equal(t, second.Size, got.Size)
}

func TestHashIndex_ConcurrentAccess(t *testing.T) {
	idx := NewHashIndex()
	const goroutines = 10
	const ops = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				key := []byte(fmt.Sprintf("key_%d_%d", id, j))
				idx.Put(key, &IndexEntry{Offset: int64(j)})
				if _, ok := idx.Get(key); !ok {
					t.Errorf("key %s missing after put", key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, goroutines*ops, idx.Size())
}

func BenchmarkHashIndex_Get(b *testing.B) {
	idx := NewHashIndex()
	for i := 0; i < 1000; i++ {
		idx.Put([]byte(fmt.Sprintf("key_%d", i)), &IndexEntry{Offset: int64(i)})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Get([]byte(fmt.Sprintf("key_%d", i%1000)))
	}
}
