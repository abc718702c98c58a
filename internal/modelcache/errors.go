package modelcache

import (
	"errors"
	"fmt"
)

var (
	// ErrIntegrity marks an artifact whose content hash does not match the
	// expected value. Never retried silently.
	ErrIntegrity = errors.New("artifact integrity check failed")

	// ErrDownload marks a download that failed after exhausting retries.
	ErrDownload = errors.New("artifact download failed")

	// ErrStorage marks a fatal local filesystem failure (permissions, disk
	// space). Not retryable.
	ErrStorage = errors.New("artifact storage failure")
)

// IntegrityError reports a hash mismatch on a downloaded or cached file.
type IntegrityError struct {
	Path string
	Want string
	Got  string
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: want sha256 %s, got %s", e.Path, e.Want, e.Got)
}

// Unwrap returns ErrIntegrity.
func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// DownloadError carries the last underlying cause after all retry attempts
// are spent.
type DownloadError struct {
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

// Unwrap exposes both the ErrDownload sentinel and the underlying cause.
func (e *DownloadError) Unwrap() []error { return []error{ErrDownload, e.Err} }

// StorageError reports a non-retryable local filesystem failure.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s of %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the ErrStorage sentinel and the underlying cause.
func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }
