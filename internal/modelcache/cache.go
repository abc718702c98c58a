// Package modelcache acquires model artifacts from their remote sources and
// maintains a verified on-disk cache. Concurrent requests for the same model
// are coalesced into a single download; artifacts only become visible at
// their final path after their SHA-256 hash has been verified.
package modelcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"golang.org/x/sync/singleflight"
)

// Artifact is a verified, locally cached model.
type Artifact struct {
	Model Model
	Dir   string
	paths map[string]string
}

// Path returns the local path of the named artifact file.
func (a *Artifact) Path(name string) (string, bool) {
	p, ok := a.paths[name]
	return p, ok
}

// ModelPath returns the local path of the model graph file.
func (a *Artifact) ModelPath() string {
	if f, ok := a.Model.ModelFile(); ok {
		return a.paths[f.Name]
	}
	return ""
}

// VoicePath returns the local path of the voice embedding archive.
func (a *Artifact) VoicePath() string {
	if f, ok := a.Model.VoiceFile(); ok {
		return a.paths[f.Name]
	}
	return ""
}

// Manager owns the cache directory. All writes to the cache go through the
// manager; readers only ever observe fully verified artifacts.
type Manager struct {
	root    string
	catalog *Catalog
	client  *http.Client
	logger  *log.Logger

	group          singleflight.Group
	maxAttempts    int
	attemptTimeout time.Duration
	retryInterval  time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithClient sets the HTTP client used for downloads.
func WithClient(c *http.Client) Option { return func(m *Manager) { m.client = c } }

// WithCatalog replaces the bundled model catalog.
func WithCatalog(c *Catalog) Option { return func(m *Manager) { m.catalog = c } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithMaxAttempts bounds the number of download attempts per file.
func WithMaxAttempts(n int) Option { return func(m *Manager) { m.maxAttempts = n } }

// WithAttemptTimeout bounds the duration of a single download attempt.
func WithAttemptTimeout(d time.Duration) Option { return func(m *Manager) { m.attemptTimeout = d } }

// WithRetryInterval sets the initial backoff interval between attempts.
func WithRetryInterval(d time.Duration) Option { return func(m *Manager) { m.retryInterval = d } }

// DefaultRoot returns the platform cache directory for model artifacts.
func DefaultRoot() (string, error) {
	scope := gap.NewScope(gap.User, "vocalize")
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(dir, "models"), nil
}

// NewManager creates a manager rooted at dir, creating it if needed.
func NewManager(root string, opts ...Option) (*Manager, error) {
	m := &Manager{
		root:           root,
		catalog:        NewCatalog(),
		client:         &http.Client{},
		logger:         log.Default(),
		maxAttempts:    4,
		attemptTimeout: 10 * time.Minute,
		retryInterval:  time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: root, Err: err}
	}
	return m, nil
}

// Catalog returns the manager's model catalog.
func (m *Manager) Catalog() *Catalog { return m.catalog }

// EnsureAvailable guarantees every file of the model is present and verified
// in the cache, downloading what is missing or stale. It is idempotent and
// safe for concurrent use: callers requesting the same model while a
// download is in flight await that download instead of starting another.
func (m *Manager) EnsureAvailable(ctx context.Context, modelID string) (*Artifact, error) {
	model, err := m.catalog.Lookup(modelID)
	if err != nil {
		return nil, err
	}

	// Coalesce per model id. Unrelated models proceed independently.
	v, err, _ := m.group.Do(model.Key(), func() (any, error) {
		return m.ensureModel(ctx, model)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

func (m *Manager) ensureModel(ctx context.Context, model Model) (*Artifact, error) {
	dir := filepath.Join(m.root, model.Key())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	art := &Artifact{Model: model, Dir: dir, paths: make(map[string]string, len(model.Files))}
	for _, spec := range model.Files {
		path, err := m.ensureFile(ctx, dir, spec)
		if err != nil {
			return nil, err
		}
		art.paths[spec.Name] = path
	}
	return art, nil
}

func (m *Manager) ensureFile(ctx context.Context, dir string, spec FileSpec) (string, error) {
	final := filepath.Join(dir, spec.Name)

	if ok, err := m.verifyCached(final, spec); err != nil {
		return "", err
	} else if ok {
		m.logger.Debug("model artifact cache hit", "file", spec.Name)
		return final, nil
	}

	if err := m.download(ctx, final, spec); err != nil {
		return "", err
	}
	return final, nil
}

// verifyCached reports whether the file at path already matches spec. A
// valid manifest short-circuits hashing; otherwise the full file is hashed
// and the manifest rewritten.
func (m *Manager) verifyCached(path string, spec FileSpec) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "stat", Path: path, Err: err}
	}

	if rec, ok := readManifest(path); ok &&
		rec.SHA256 == spec.SHA256 && rec.Size == info.Size() {
		return true, nil
	}

	m.logger.Debug("re-hashing cached artifact", "file", spec.Name, "size", humanize.Bytes(uint64(info.Size())))
	sum, err := hashFile(path)
	if err != nil {
		return false, &StorageError{Op: "read", Path: path, Err: err}
	}
	if sum != spec.SHA256 {
		m.logger.Warn("cached artifact is stale or corrupt, re-downloading",
			"file", spec.Name, "want", spec.SHA256, "got", sum)
		return false, nil
	}
	if err := writeManifest(path, manifest{SHA256: sum, Size: info.Size(), VerifiedAt: time.Now()}); err != nil {
		return false, &StorageError{Op: "write", Path: manifestPath(path), Err: err}
	}
	return true, nil
}

// download fetches spec into a temporary file, verifies its hash, and only
// then renames it into place. Network failures are retried with bounded
// exponential backoff; integrity and storage failures are terminal.
func (m *Manager) download(ctx context.Context, final string, spec FileSpec) error {
	m.logger.Info("downloading model artifact",
		"file", spec.Name, "size", humanize.Bytes(uint64(spec.Size)))

	attempts := 0
	op := func() error {
		attempts++
		err := m.downloadOnce(ctx, final, spec)
		if err != nil && !errors.Is(err, ErrIntegrity) && !errors.Is(err, ErrStorage) {
			m.logger.Warn("download attempt failed",
				"file", spec.Name, "attempt", attempts, "error", err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.retryInterval
	policy.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(m.maxAttempts-1)), ctx))
	if err == nil {
		m.logger.Info("model artifact verified", "file", spec.Name)
		return nil
	}
	if errors.Is(err, ErrIntegrity) || errors.Is(err, ErrStorage) {
		return err
	}
	return &DownloadError{URL: spec.URL, Attempts: attempts, Err: err}
}

func (m *Manager) downloadOnce(ctx context.Context, final string, spec FileSpec) error {
	attemptCtx, cancel := context.WithTimeout(ctx, m.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(final), "."+spec.Name+".*.partial")
	if err != nil {
		return backoff.Permanent(&StorageError{Op: "create", Path: final, Err: err})
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	sum, err := copyPayload(tmp, resp.Body, tmpPath)
	if err != nil {
		discard()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return backoff.Permanent(&StorageError{Op: "write", Path: tmpPath, Err: err})
	}

	if sum != spec.SHA256 {
		os.Remove(tmpPath)
		return backoff.Permanent(&IntegrityError{Path: final, Want: spec.SHA256, Got: sum})
	}

	// The artifact becomes visible in a single rename; readers never see a
	// partial file at the final path.
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return backoff.Permanent(&StorageError{Op: "rename", Path: final, Err: err})
	}
	info, err := os.Stat(final)
	if err != nil {
		return backoff.Permanent(&StorageError{Op: "stat", Path: final, Err: err})
	}
	if err := writeManifest(final, manifest{SHA256: sum, Size: info.Size(), VerifiedAt: time.Now()}); err != nil {
		return backoff.Permanent(&StorageError{Op: "write", Path: manifestPath(final), Err: err})
	}
	return nil
}

// trackedWriter remembers its own write failure, distinguishing it from a
// read failure when both sides flow through one io.Copy.
type trackedWriter struct {
	w   io.Writer
	err error
}

func (t *trackedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

// copyPayload streams src into dst while hashing it, returning the hex
// SHA-256 of the copied bytes. A failure on the write side is a local
// storage failure and never retried; a failure on the read side is a
// network failure eligible for the retry policy.
func copyPayload(dst io.Writer, src io.Reader, path string) (string, error) {
	hasher := sha256.New()
	tw := &trackedWriter{w: dst}
	if _, err := io.Copy(io.MultiWriter(tw, hasher), src); err != nil {
		if tw.err != nil {
			return "", backoff.Permanent(&StorageError{Op: "write", Path: path, Err: tw.err})
		}
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Remove deletes the cached files of a model, if any.
func (m *Manager) Remove(modelID string) error {
	model, err := m.catalog.Lookup(modelID)
	if err != nil {
		return err
	}
	dir := filepath.Join(m.root, model.Key())
	if err := os.RemoveAll(dir); err != nil {
		return &StorageError{Op: "remove", Path: dir, Err: err}
	}
	return nil
}

// Size returns the total bytes used by the cache.
func (m *Manager) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(m.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, &StorageError{Op: "walk", Path: m.root, Err: err}
	}
	return total, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
