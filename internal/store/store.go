package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storefront/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by lookups that callers want as an error
	// rather than a boolean.
	ErrNotFound = errors.New("not found")

	// ErrInvalidProduct rejects a product that cannot be stored or
	// written back losslessly.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrInvalidStatus rejects an empty or multi-line order status.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrMalformedRecord wraps every line or block skipped while loading.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrPersistence means the in-memory state changed but the backing
	// file could not be rewritten. The store keeps serving from memory.
	ErrPersistence = errors.New("persistence failure")
)

func malformed(storeName string, lineNo int, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s line %d: %s", ErrMalformedRecord, storeName, lineNo, fmt.Sprintf(format, args...))
}

// rewriteFile replaces path with data through a temp file in the same
// directory, so readers see either the old or the new snapshot.
func rewriteFile(storeName, path string, data []byte, logger *zap.Logger) error {
	start := time.Now()
	err := writeFileAtomic(path, data)
	util.FileRewriteLatency.WithLabelValues(storeName).Observe(time.Since(start).Seconds())

	if err != nil {
		util.PersistenceFailuresTotal.WithLabelValues(storeName).Inc()
		logger.Error("Failed to rewrite backing file, continuing in memory only",
			zap.String("store", storeName),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("%w: failed to rewrite %s: %w", ErrPersistence, path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
