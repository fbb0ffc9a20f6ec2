// Package plan resolves a list of package names against a catalog, going
// through the query cache and fanning out remote searches over a bounded
// worker pool.
package plan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/condamigrate/internal/catalog"
	"github.com/git-pkgs/condamigrate/internal/core"
)

const (
	// DefaultJobs is the default worker pool size.
	DefaultJobs = 5

	// SoftMaxJobs is the pool size above which a warning is logged.
	SoftMaxJobs = 10
)

// Status classifies the outcome of one query.
type Status int

const (
	NotFound Status = iota
	FoundInCache
	FoundInRepository
)

func (s Status) String() string {
	switch s {
	case FoundInCache:
		return "FOUND_IN_CACHE"
	case FoundInRepository:
		return "FOUND_IN_REPOSITORY"
	default:
		return "NOT_FOUND"
	}
}

// Found reports whether the status belongs to the "found" bucket.
func (s Status) Found() bool {
	return s == FoundInCache || s == FoundInRepository
}

// Bucket names used when reporting.
const (
	BucketFound    = "found"
	BucketNotFound = "not_found"
)

// Bucket returns the reporting bucket of the status.
func (s Status) Bucket() string {
	if s.Found() {
		return BucketFound
	}
	return BucketNotFound
}

// Result is the outcome for one package. Err explains a NotFound status.
type Result struct {
	Name   string
	Status Status
	Err    error
}

// Stats summarizes a plan run.
type Stats struct {
	Found       int
	NotFound    int
	CacheHits   int
	RemoteCalls int
	Duration    time.Duration
}

// Store is the subset of the query cache used by the planner.
type Store interface {
	Contains(ctx context.Context, name string) (bool, error)
	Store(ctx context.Context, name string, payload []byte) error
}

// QueryPlan runs searches and keeps the classification of every package.
type QueryPlan struct {
	searcher     catalog.Searcher
	store        Store
	jobs         int
	queryTimeout time.Duration
	logger       core.Logger
	progress     func(Result)

	mu      sync.Mutex
	results map[string]Result
	stats   Stats
}

// Option configures a QueryPlan.
type Option func(*QueryPlan)

// WithJobs sets the worker pool size. Values below 1 select DefaultJobs.
func WithJobs(n int) Option {
	return func(p *QueryPlan) {
		p.jobs = n
	}
}

// WithQueryTimeout bounds each remote search. A search that times out is
// classified NotFound.
func WithQueryTimeout(d time.Duration) Option {
	return func(p *QueryPlan) {
		p.queryTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(p *QueryPlan) {
		p.logger = l
	}
}

// WithProgress registers a callback invoked once per classified package.
// Calls are serialized and must not call back into the plan.
func WithProgress(fn func(Result)) Option {
	return func(p *QueryPlan) {
		p.progress = fn
	}
}

// New returns a plan searching with searcher and caching into store.
func New(searcher catalog.Searcher, store Store, opts ...Option) *QueryPlan {
	p := &QueryPlan{
		searcher: searcher,
		store:    store,
		jobs:     DefaultJobs,
		logger:   core.DiscardLogger(),
		results:  make(map[string]Result),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.jobs < 1 {
		p.jobs = DefaultJobs
	}
	return p
}

// SearchAndMark classifies every name. The first name is resolved before the
// others are handed to the worker pool. Query failures only mark the package
// NotFound; cache failures such as lock timeouts are collected and returned
// once every task has finished.
func (p *QueryPlan) SearchAndMark(ctx context.Context, names []string) error {
	start := time.Now()
	if p.jobs > SoftMaxJobs {
		p.logger.Warn("worker pool larger than recommended", "jobs", p.jobs, "recommended", SoftMaxJobs)
	}

	names = dedupe(names)
	if len(names) == 0 {
		return nil
	}

	var (
		errMu     sync.Mutex
		cacheErrs []error
	)
	run := func(s catalog.Searcher, name string) {
		res, cacheErr := p.safeQuery(ctx, s, name)
		p.record(res)
		if cacheErr != nil {
			errMu.Lock()
			cacheErrs = append(cacheErrs, cacheErr)
			errMu.Unlock()
		}
	}

	run(p.indexCache(false), names[0])

	var g errgroup.Group
	g.SetLimit(p.jobs)
	warm := p.indexCache(true)
	for _, name := range names[1:] {
		g.Go(func() error {
			run(warm, name)
			return nil
		})
	}
	// Tasks record their own errors and always return nil.
	g.Wait()

	p.mu.Lock()
	p.stats.Duration += time.Since(start)
	p.mu.Unlock()

	return errors.Join(cacheErrs...)
}

func (p *QueryPlan) indexCache(use bool) catalog.Searcher {
	if ics, ok := p.searcher.(catalog.IndexCacheSearcher); ok {
		return ics.WithIndexCache(use)
	}
	return p.searcher
}

func (p *QueryPlan) safeQuery(ctx context.Context, s catalog.Searcher, name string) (res Result, cacheErr error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Name: name, Status: NotFound, Err: fmt.Errorf("search for %s panicked: %v", name, r)}
			cacheErr = nil
		}
	}()
	return p.query(ctx, s, name)
}

func (p *QueryPlan) query(ctx context.Context, s catalog.Searcher, name string) (Result, error) {
	cached, err := p.store.Contains(ctx, name)
	if err != nil {
		err = fmt.Errorf("checking cache for %s: %w", name, err)
		return Result{Name: name, Status: NotFound, Err: err}, err
	}
	if cached {
		p.logger.Debug("found in cache", "package", name)
		p.mu.Lock()
		p.stats.CacheHits++
		p.mu.Unlock()
		return Result{Name: name, Status: FoundInCache}, nil
	}

	body, err := p.search(ctx, s, name)
	if !errors.Is(err, catalog.ErrUnavailable) {
		p.mu.Lock()
		p.stats.RemoteCalls++
		p.mu.Unlock()
	}
	if err == nil {
		err = catalog.CheckPayload(name, body)
	}
	if err != nil {
		p.logger.Debug("not found", "package", name, "err", err)
		return Result{Name: name, Status: NotFound, Err: err}, nil
	}

	if err := p.store.Store(ctx, name, body); err != nil {
		err = fmt.Errorf("caching %s: %w", name, err)
		return Result{Name: name, Status: NotFound, Err: err}, err
	}
	p.logger.Debug("found in repository", "package", name)
	return Result{Name: name, Status: FoundInRepository}, nil
}

func (p *QueryPlan) search(ctx context.Context, s catalog.Searcher, name string) ([]byte, error) {
	if p.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.queryTimeout)
		defer cancel()
	}
	return s.Search(ctx, name)
}

func (p *QueryPlan) record(res Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[res.Name] = res
	if p.progress != nil {
		p.progress(res)
	}
}

// Found returns the names classified FoundInCache or FoundInRepository, sorted.
func (p *QueryPlan) Found() []string {
	return p.bucket(true)
}

// NotFound returns the names classified NotFound, sorted.
func (p *QueryPlan) NotFound() []string {
	return p.bucket(false)
}

func (p *QueryPlan) bucket(found bool) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := []string{}
	for name, res := range p.results {
		if res.Status.Found() == found {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Buckets returns both buckets keyed by BucketFound and BucketNotFound.
func (p *QueryPlan) Buckets() map[string][]string {
	return map[string][]string{
		BucketFound:    p.Found(),
		BucketNotFound: p.NotFound(),
	}
}

// Result returns the classification of name.
func (p *QueryPlan) Result(name string) (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res, ok := p.results[name]
	return res, ok
}

// Stats returns counters accumulated over every SearchAndMark call.
func (p *QueryPlan) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.stats
	for _, res := range p.results {
		if res.Status.Found() {
			st.Found++
		} else {
			st.NotFound++
		}
	}
	return st
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
