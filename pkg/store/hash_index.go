package store

import (
	"strings"
	"sync"
)

// HashIndex maps each live key to the location of its latest record
type HashIndex struct {
	entries map[string]*IndexEntry
	mutex   sync.RWMutex
}

// NewHashIndex creates a new hash index
func NewHashIndex() *HashIndex {
	return &HashIndex{
		entries: make(map[string]*IndexEntry),
	}
}

// Put adds or updates an index entry for a key
func (idx *HashIndex) Put(key []byte, entry *IndexEntry) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries[string(key)] = entry
}

// Get retrieves the index entry for a key
func (idx *HashIndex) Get(key []byte) (*IndexEntry, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	entry, exists := idx.entries[string(key)]
	return entry, exists
}

// Delete removes a key from the index
func (idx *HashIndex) Delete(key []byte) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	delete(idx.entries, string(key))
}

// Size returns the number of keys in the index
func (idx *HashIndex) Size() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	return len(idx.entries)
}

// EntriesWithPrefix returns a snapshot of every key that starts with prefix
// together with its entry. Map iteration order is not stable.
func (idx *HashIndex) EntriesWithPrefix(prefix string) map[string]*IndexEntry {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	out := make(map[string]*IndexEntry)
	for key, entry := range idx.entries {
		if strings.HasPrefix(key, prefix) {
			out[key] = entry
		}
	}
	return out
}

// BuildFromLog scans a log file from the start and populates the index.
// Tombstones remove earlier entries for their key.
func (idx *HashIndex) BuildFromLog(reader *LogReader) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[string]*IndexEntry)

	if err := reader.Seek(0); err != nil {
		return err
	}

	it := reader.Iterator()
	for it.Next() {
		record := it.Record()
		key := string(record.Key)

		if record.IsTombstone() {
			delete(idx.entries, key)
			continue
		}
		idx.entries[key] = &IndexEntry{
			Offset:    it.Offset(),
			Size:      uint32(record.Size()),
			Timestamp: record.Timestamp,
		}
	}
	return it.Err()
}
