// Package cache stores raw catalog search payloads on disk, one JSON file per
// package, guarded by a cross-process lock on a sentinel file.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/git-pkgs/condamigrate/internal/core"
)

const (
	// DefaultLockFileName is the sentinel file locked around every operation.
	DefaultLockFileName = "tmk.lock"

	// DefaultTTL is the age after which a sweep evicts an entry.
	DefaultTTL = 24 * time.Hour

	// StampKey is the top-level key holding the query date of a stored payload.
	StampKey = "condamigrate"

	defaultRetryDelay = 50 * time.Millisecond
)

// Stamp is injected into every stored payload under StampKey.
type Stamp struct {
	QueryDate float64 `json:"query_date"`
}

// Time returns the query date as a time.Time.
func (s Stamp) Time() time.Time {
	sec := int64(s.QueryDate)
	nsec := int64((s.QueryDate - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func stampOf(t time.Time) Stamp {
	return Stamp{QueryDate: float64(t.UnixNano()) / 1e9}
}

// Cache guards a Storage with an exclusive lock held for the duration of
// each call. The lock is exclusive between goroutines of one process and
// between processes sharing the directory. It is not re-entrant: calling a
// Cache method while holding Acquire blocks until the wait expires.
type Cache struct {
	dir         string
	lockPath    string
	storage     Storage
	ttl         time.Duration
	lockTimeout time.Duration
	retryDelay  time.Duration
	now         func() time.Time
	logger      core.Logger

	sem  chan struct{}
	lock *flock.Flock
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the eviction age used by Sweep.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithLockTimeout bounds how long an operation waits for the lock. Zero,
// the default, waits until the context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.lockTimeout = d
	}
}

// WithRetryDelay sets the polling interval used while another process holds the lock.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Cache) {
		c.retryDelay = d
	}
}

// WithLockFileName overrides the sentinel file name.
func WithLockFileName(name string) Option {
	return func(c *Cache) {
		c.lockPath = filepath.Join(c.dir, name)
	}
}

// WithClock sets the time source used for stamps and sweeps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithStorage replaces the default directory storage.
func WithStorage(s Storage) Option {
	return func(c *Cache) {
		c.storage = s
	}
}

// New returns a cache in dir, creating the directory and the lock sentinel
// when missing.
func New(dir string, opts ...Option) (*Cache, error) {
	c := newCache(dir, opts...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	f, err := os.OpenFile(c.lockPath, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	_ = f.Close()
	return c, nil
}

// Open returns a cache for an existing directory. It fails with
// ErrNotInitialized when the directory or its lock sentinel is missing.
func Open(dir string, opts ...Option) (*Cache, error) {
	c := newCache(dir, opts...)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", dir, ErrNotInitialized)
	}
	if _, err := os.Stat(c.lockPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("lock file %s is missing: %w", c.lockPath, ErrNotInitialized)
	}
	return c, nil
}

func newCache(dir string, opts ...Option) *Cache {
	c := &Cache{
		dir:        dir,
		lockPath:   filepath.Join(dir, DefaultLockFileName),
		ttl:        DefaultTTL,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
		logger:     core.DiscardLogger(),
		sem:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.storage == nil {
		c.storage = NewDirStorage(dir)
	}
	c.lock = flock.New(c.lockPath)
	return c
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// LockPath returns the path of the lock sentinel.
func (c *Cache) LockPath() string {
	return c.lockPath
}

// Acquire takes the cache lock, waiting at most the configured lock timeout.
// Every successful Acquire must be paired with Release.
func (c *Cache) Acquire(ctx context.Context) error {
	if c.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.lockTimeout)
		defer cancel()
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return &LockError{Path: c.lockPath, Err: ctx.Err()}
	}

	ok, err := c.lock.TryLockContext(ctx, c.retryDelay)
	if err == nil && !ok {
		err = context.DeadlineExceeded
	}
	if err != nil {
		<-c.sem
		return &LockError{Path: c.lockPath, Err: err}
	}
	return nil
}

// Release gives up the cache lock.
func (c *Cache) Release() error {
	defer func() { <-c.sem }()
	return c.lock.Unlock()
}

func (c *Cache) locked(ctx context.Context, fn func() error) (err error) {
	if err := c.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if uerr := c.Release(); uerr != nil && err == nil {
			err = fmt.Errorf("releasing cache lock: %w", uerr)
		}
	}()
	return fn()
}

// Contains reports whether a payload is stored for name.
func (c *Cache) Contains(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := c.locked(ctx, func() error {
		var err error
		ok, err = c.storage.Exists(name)
		return err
	})
	return ok, err
}

// Get returns the stored payload for name, including the injected stamp.
// ok is false when nothing is stored.
func (c *Cache) Get(ctx context.Context, name string) (payload []byte, ok bool, err error) {
	err = c.locked(ctx, func() error {
		payload, ok, err = c.storage.Read(name)
		return err
	})
	return payload, ok, err
}

// Store replaces the payload for name. The payload must be a JSON object;
// a fresh Stamp is added under StampKey, overwriting any stamp it carries.
func (c *Cache) Store(ctx context.Context, name string, payload []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("payload for %s is not a JSON object: %w", name, err)
	}
	if doc == nil {
		return fmt.Errorf("payload for %s is not a JSON object", name)
	}

	return c.locked(ctx, func() error {
		stamp, err := json.Marshal(stampOf(c.now()))
		if err != nil {
			return err
		}
		doc[StampKey] = stamp
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return c.storage.Write(name, data)
	})
}

// SweepResult summarizes a sweep.
type SweepResult struct {
	Deleted        int
	BytesReclaimed int64
}

// Sweep removes entries older than the TTL, or every entry when force is set.
// Entries without a readable stamp are treated as expired.
func (c *Cache) Sweep(ctx context.Context, force bool) (SweepResult, error) {
	var res SweepResult
	err := c.locked(ctx, func() error {
		entries, err := c.storage.List()
		if err != nil {
			return err
		}

		cutoff := c.now().Add(-c.ttl)
		var expired []Entry
		for _, e := range entries {
			if force {
				expired = append(expired, e)
				continue
			}
			data, ok, err := c.storage.Read(e.Name)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			stamp, found := readStamp(data)
			if !found || stamp.Time().Before(cutoff) {
				expired = append(expired, e)
			}
		}

		for _, e := range expired {
			if err := c.storage.Remove(e.Name); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return err
			}
			c.logger.Debug("evicted cache entry", "package", e.Name, "bytes", e.Size)
			res.Deleted++
			res.BytesReclaimed += e.Size
		}
		return nil
	})
	if err == nil {
		c.logger.Info("cache swept", "deleted", res.Deleted, "bytes", res.BytesReclaimed, "forced", force)
	}
	return res, err
}

func readStamp(data []byte) (Stamp, bool) {
	var doc struct {
		Stamp *Stamp `json:"condamigrate"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.Stamp == nil {
		return Stamp{}, false
	}
	return *doc.Stamp, true
}
