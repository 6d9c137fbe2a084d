package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ssargent/mediashelf/pkg/logging"
	"github.com/ssargent/mediashelf/pkg/storage"
	"github.com/ssargent/mediashelf/pkg/store"
)

// BackendConfig selects and configures the storage engine.
type BackendConfig struct {
	Engine        string
	FsyncInterval time.Duration
}

// OpenBackend opens one collection's engine in dir.
func OpenBackend(cfg BackendConfig, dir string) (storage.Backend, error) {
	switch cfg.Engine {
	case storage.EngineLog, "":
		kv, res, err := store.OpenKVStore(store.KVStoreConfig{
			DataDir:       dir,
			FsyncInterval: cfg.FsyncInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("open log store at %s: %w", dir, err)
		}
		logRecovery(dir, res)
		return kv, nil
	case storage.EnginePebble:
		return storage.NewPebbleStorage(dir)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
}

// logRecovery reports a log that was cut back to its last good record.
// Anything written after the corrupt record is gone at this point.
func logRecovery(dir string, res *store.RecoveryResult) {
	if res == nil || res.RecordsTruncated == 0 {
		return
	}
	logging.Warn().
		Str("dir", dir).
		Int64("records_validated", res.RecordsValidated).
		Int64("records_truncated", res.RecordsTruncated).
		Int64("size_before", res.FileSizeBefore).
		Int64("size_after", res.FileSizeAfter).
		Int64("bytes_dropped", res.FileSizeBefore-res.FileSizeAfter).
		Dur("recovery_time", res.RecoveryTime).
		Msg("log store truncated at corrupt record")
}

// Open opens both collections under dataDir/media and dataDir/reviews.
func Open(cfg BackendConfig, dataDir string, opts ...ReviewOption) (*CatalogStore, *ReviewStore, error) {
	mb, err := OpenBackend(cfg, filepath.Join(dataDir, "media"))
	if err != nil {
		return nil, nil, err
	}
	media, err := NewCatalogStore(mb)
	if err != nil {
		_ = mb.Close()
		return nil, nil, err
	}

	rb, err := OpenBackend(cfg, filepath.Join(dataDir, "reviews"))
	if err != nil {
		_ = media.Close()
		return nil, nil, err
	}
	reviews, err := NewReviewStore(rb, opts...)
	if err != nil {
		_ = rb.Close()
		_ = media.Close()
		return nil, nil, err
	}
	return media, reviews, nil
}

// CloseAll closes both stores and joins their errors.
func CloseAll(media *CatalogStore, reviews *ReviewStore) error {
	var errs []error
	if media != nil {
		errs = append(errs, media.Close())
	}
	if reviews != nil {
		errs = append(errs, reviews.Close())
	}
	return errors.Join(errs...)
}
