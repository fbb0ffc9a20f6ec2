// Package catalog defines the remote package search interface and the
// registry of search backends.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/git-pkgs/condamigrate/client"
)

var (
	// ErrNotFound is wrapped when the catalog answered that the package does not exist.
	ErrNotFound = errors.New("package not found in catalog")

	// ErrUnavailable is wrapped when a search gave up without reaching the
	// catalog.
	ErrUnavailable = errors.New("catalog unavailable")
)

// QueryError is returned for any failed search: transport failure, non-zero
// exit, timeout, malformed output or an explicit "error" payload.
type QueryError struct {
	Name string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("searching %s: %v", e.Name, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Searcher looks up a package in a remote catalog. On success it returns the
// raw JSON object produced by the catalog, keyed by package name.
type Searcher interface {
	Search(ctx context.Context, name string) ([]byte, error)
}

// IndexCacheSearcher is implemented by searchers that can reuse a locally
// cached channel index instead of refreshing it on every query.
type IndexCacheSearcher interface {
	Searcher
	WithIndexCache(use bool) Searcher
}

// ErrorPayload is the shape of an error answer from the catalog.
type ErrorPayload struct {
	Error     string `json:"error"`
	Exception string `json:"exception_name,omitempty"`
}

// CheckPayload validates a search answer. It returns a *QueryError when body
// is not a JSON object or carries an "error" key; the latter wraps ErrNotFound.
func CheckPayload(name string, body []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		if err == nil {
			err = errors.New("payload is not a JSON object")
		}
		return &QueryError{Name: name, Err: fmt.Errorf("invalid catalog output: %w", err)}
	}
	raw, ok := doc["error"]
	if !ok {
		return nil
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		msg = string(raw)
	}
	return &QueryError{Name: name, Err: fmt.Errorf("%w: %s", ErrNotFound, msg)}
}

// Options configures a backend.
type Options struct {
	// BaseURL is the catalog endpoint, or the executable for command backends.
	BaseURL  string
	Channels []string
	Client   *client.Client
}

// Factory creates a searcher for the given options.
type Factory func(opts Options) Searcher

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a backend factory. defaultURL is used when Options.BaseURL is empty.
func Register(backend string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[backend] = factory
	defaults[backend] = defaultURL
}

// New creates a searcher for the named backend.
// If opts.Client is nil, client.DefaultClient() is used.
func New(backend string, opts Options) (Searcher, error) {
	mu.RLock()
	factory, ok := factories[backend]
	defaultURL := defaults[backend]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown catalog backend: %s", backend)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultURL
	}
	if opts.Client == nil {
		opts.Client = client.DefaultClient()
	}
	return factory(opts), nil
}

// SupportedBackends returns the registered backend names, sorted.
func SupportedBackends() []string {
	mu.RLock()
	defer mu.RUnlock()

	backends := make([]string, 0, len(factories))
	for name := range factories {
		backends = append(backends, name)
	}
	sort.Strings(backends)
	return backends
}

// DefaultURL returns the default endpoint for a backend.
func DefaultURL(backend string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[backend]
}
