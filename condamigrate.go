// Package condamigrate moves Python projects from Pipfile.lock to conda
// environments. It queries a conda catalog for every locked package, caches
// the raw answers on disk and keeps, for each package, the newest build whose
// declared dependencies accept an already solved base profile.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/condamigrate"
//		_ "github.com/git-pkgs/condamigrate/all"
//	)
//
//	searcher, err := condamigrate.New("anaconda", condamigrate.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	cache, err := condamigrate.NewCache(dir)
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := condamigrate.Convert(ctx, "path/to/project", searcher, cache)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(len(res.Conda), "conda packages,", len(res.Pip), "pip packages")
package condamigrate

import (
	"context"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/condamigrate/client"
	"github.com/git-pkgs/condamigrate/internal/cache"
	"github.com/git-pkgs/condamigrate/internal/catalog"
	"github.com/git-pkgs/condamigrate/internal/core"
	"github.com/git-pkgs/condamigrate/internal/migrate"
	"github.com/git-pkgs/condamigrate/internal/pipenv"
	"github.com/git-pkgs/condamigrate/internal/plan"
)

// Re-export types from internal/core
type (
	// Package is a catalog record or a resolved environment package.
	Package = core.Package

	// PinnedPackage is a package with the specifier it was pinned with.
	PinnedPackage = core.PinnedPackage

	// Constraint is a dependency declared by a catalog record.
	Constraint = core.Constraint

	// Requirement names a package, optionally restricted to some versions.
	Requirement = core.Requirement

	// Restriction limits the acceptable versions of a requirement.
	Restriction = core.Restriction

	// Logger receives progress narration.
	Logger = core.Logger
)

// Re-export catalog, cache and pipeline types
type (
	// Searcher queries a conda catalog.
	Searcher = catalog.Searcher

	// Options configures a catalog backend.
	Options = catalog.Options

	// Cache is the on-disk query cache.
	Cache = cache.Cache

	// CacheOption configures a Cache.
	CacheOption = cache.Option

	// QueryPlan classifies packages as found or not found.
	QueryPlan = plan.QueryPlan

	// PlanOption configures a QueryPlan.
	PlanOption = plan.Option

	// Result is the outcome of a conversion.
	Result = migrate.Result

	// LockFile is a parsed Pipfile.lock.
	LockFile = pipenv.LockFile
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for catalog APIs.
	Client = client.Client

	// RateLimiter controls request pacing.
	RateLimiter = client.RateLimiter
)

// Re-export errors
var (
	ErrNotFound      = catalog.ErrNotFound
	ErrUnavailable   = catalog.ErrUnavailable
	ErrLockTimeout   = cache.ErrLockTimeout
	ErrConstruction  = core.ErrConstruction
	ErrParse         = core.ErrParse
	ErrNotComparable = core.ErrNotComparable
)

// Error types
type (
	QueryError             = catalog.QueryError
	LockError              = cache.LockError
	BrokenSpecifierError   = core.BrokenSpecifierError
	InvalidConstraintError = core.InvalidConstraintError
	NotComparableError     = core.NotComparableError
	LockFileNotFoundError  = pipenv.LockFileNotFoundError
	HTTPError              = client.HTTPError
	NotFoundError          = client.NotFoundError
	RateLimitError         = client.RateLimitError
)

// New creates a searcher for the given backend.
// If opts.BaseURL is empty, the backend default is used.
//
// Supported backends: "anaconda", "conda", "mamba"
func New(backend string, opts Options) (Searcher, error) {
	return catalog.New(backend, opts)
}

// SupportedBackends returns all registered backends.
// Note: backends must be imported to be registered.
func SupportedBackends() []string {
	return catalog.SupportedBackends()
}

// DefaultURL returns the default endpoint of a backend.
func DefaultURL(backend string) string {
	return catalog.DefaultURL(backend)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...ClientOption) *Client {
	return client.NewClient(opts...)
}

// ClientOption configures a Client.
type ClientOption = client.Option

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// NewCache opens the query cache in dir, creating it when missing.
func NewCache(dir string, opts ...CacheOption) (*Cache, error) {
	return cache.New(dir, opts...)
}

// LoadLockFile reads a Pipfile.lock from a file or a project directory.
func LoadLockFile(path string, dev bool) (*LockFile, error) {
	mode := pipenv.Default
	if dev {
		mode = pipenv.Dev
	}
	return pipenv.Load(path, pipenv.WithMode(mode))
}

// Search classifies names as found or not found, filling the cache with the
// payloads of the found ones.
func Search(ctx context.Context, s Searcher, c *Cache, names []string, opts ...PlanOption) (*QueryPlan, error) {
	p := plan.New(s, c, opts...)
	if err := p.SearchAndMark(ctx, names); err != nil {
		return p, err
	}
	return p, nil
}

// Convert migrates the project at path (a directory or its Pipfile.lock),
// including development packages.
func Convert(ctx context.Context, path string, s Searcher, c *Cache, opts ...PlanOption) (*Result, error) {
	lock, err := LoadLockFile(path, true)
	if err != nil {
		return nil, err
	}
	return migrate.New(s, c, migrate.WithPlanOptions(opts...)).Convert(ctx, lock)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:conda/numpy) and version PURLs (pkg:conda/numpy@1.19.5).
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// RequirementFromPURL converts a conda or pypi PURL into a requirement.
func RequirementFromPURL(purl string) (Requirement, error) {
	return core.RequirementFromPURL(purl)
}
