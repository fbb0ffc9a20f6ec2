// Package migrate converts a Pipfile.lock into a conda environment: packages
// the catalog can satisfy are installed with conda, the rest with pip.
package migrate

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/git-pkgs/condamigrate/internal/catalog"
	"github.com/git-pkgs/condamigrate/internal/core"
	"github.com/git-pkgs/condamigrate/internal/environment"
	"github.com/git-pkgs/condamigrate/internal/extract"
	"github.com/git-pkgs/condamigrate/internal/pipenv"
	"github.com/git-pkgs/condamigrate/internal/plan"
)

// Specifiers of the base profile every environment is solved against.
const (
	OpenSSLSpecifier = "<1.2.1a"
	PipSpecifier     = ">1.0.0"
)

// Store is the query cache as seen by the pipeline.
type Store interface {
	plan.Store
	extract.Source
}

// Result is the outcome of a conversion.
type Result struct {
	// Profile holds the solved base packages (openssl, python, pip).
	Profile []core.Package
	// ProfileComplete is false when a profile pin had no candidate.
	ProfileComplete bool
	Conda           []core.Package
	Pip             []core.Requirement
	ExtraIndexes    []string
	Editables       []string

	ProfileStats    plan.Stats
	DependencyStats plan.Stats
}

// Environment returns the conda environment described by the result.
func (r *Result) Environment(name string) *environment.Environment {
	env := environment.New(name)
	env.Conda = append(append(env.Conda, r.Profile...), r.Conda...)
	env.Pip = append(env.Pip, r.Pip...)
	env.ExtraIndexes = append(env.ExtraIndexes, r.ExtraIndexes...)
	return env
}

// Pipeline runs conversions.
type Pipeline struct {
	searcher    catalog.Searcher
	store       Store
	extractor   *extract.Extractor
	logger      core.Logger
	planOptions []plan.Option
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used by the pipeline and its query plans.
func WithLogger(l core.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithPlanOptions passes options to every query plan the pipeline runs.
func WithPlanOptions(opts ...plan.Option) Option {
	return func(p *Pipeline) {
		p.planOptions = append(p.planOptions, opts...)
	}
}

// New returns a pipeline searching with searcher and caching into store.
func New(searcher catalog.Searcher, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		searcher: searcher,
		store:    store,
		logger:   core.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.extractor = extract.New(store, extract.WithLogger(p.logger))
	return p
}

// Profile returns the pins every environment starts from. Python is pinned
// to the interpreter recorded by the lock and left out when it records none.
func Profile(lock *pipenv.LockFile) ([]*core.PinnedPackage, error) {
	ssl, err := core.NewPinnedPackage("openssl", "", OpenSSLSpecifier)
	if err != nil {
		return nil, err
	}
	pins := []*core.PinnedPackage{ssl}

	py, ok, err := lock.PythonRequirement()
	if err != nil {
		return nil, fmt.Errorf("python requirement: %w", err)
	}
	if ok {
		pins = append(pins, py)
	}

	pip, err := core.NewPinnedPackage("pip", "", PipSpecifier)
	if err != nil {
		return nil, err
	}
	return append(pins, pip), nil
}

func (p *Pipeline) newPlan() *plan.QueryPlan {
	opts := append([]plan.Option{plan.WithLogger(p.logger)}, p.planOptions...)
	return plan.New(p.searcher, p.store, opts...)
}

// Convert solves the profile, then sorts every dependency of the lock into
// the conda or the pip list. Each dependency takes the newest candidate
// compatible with the solved profile.
func (p *Pipeline) Convert(ctx context.Context, lock *pipenv.LockFile) (*Result, error) {
	pins, err := Profile(lock)
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(pins, func(pin *core.PinnedPackage) bool { return pin.Name == "python" }) {
		p.logger.Warn("lock file does not pin a python version", "path", lock.Path())
	}

	res := &Result{
		ExtraIndexes: lock.Sources(),
		Editables:    lock.Editables(),
	}

	solved, stats, err := p.solveProfile(ctx, pins)
	if err != nil {
		return nil, err
	}
	res.Profile = solved
	res.ProfileStats = stats
	res.ProfileComplete = len(solved) == len(pins)
	p.logger.Info("profile solved", "complete", res.ProfileComplete, "packages", len(solved))
	for _, pkg := range solved {
		p.logger.Info("profile", "package", pkg.Name, "version", pkg.Version, "build", pkg.Build)
	}

	if err := p.solveDependencies(ctx, lock, res); err != nil {
		return nil, err
	}
	p.logger.Info("dependencies solved", "conda", len(res.Conda), "pip", len(res.Pip))
	return res, nil
}

func (p *Pipeline) solveProfile(ctx context.Context, pins []*core.PinnedPackage) ([]core.Package, plan.Stats, error) {
	names := make([]string, len(pins))
	for i, pin := range pins {
		names[i] = pin.Name
	}
	qp := p.newPlan()
	if err := qp.SearchAndMark(ctx, names); err != nil {
		return nil, plan.Stats{}, err
	}

	solved := []core.Package{}
	for _, pin := range pins {
		candidates, err := p.extractor.ExtractPinnedPackages(ctx, pin, solved)
		if err != nil {
			return nil, plan.Stats{}, err
		}
		if len(candidates) == 0 {
			p.logger.Warn("no candidate for profile package", "pin", pin.String())
			continue
		}
		solved = append(solved, candidates[0])
	}
	return solved, qp.Stats(), nil
}

func (p *Pipeline) solveDependencies(ctx context.Context, lock *pipenv.LockFile, res *Result) error {
	reqs, err := lock.Dependencies()
	if err != nil {
		return err
	}
	byName := make(map[string]core.Requirement, len(reqs))
	names := make([]string, 0, len(reqs))
	for _, r := range reqs {
		byName[r.Name] = r
		names = append(names, r.Name)
	}

	qp := p.newPlan()
	if err := qp.SearchAndMark(ctx, names); err != nil {
		return err
	}

	for _, name := range qp.Found() {
		req := byName[name]
		candidates, err := p.extractor.ExtractPackages(ctx, req, res.Profile)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			p.logger.Debug("no compatible conda build", "package", name)
			res.Pip = append(res.Pip, req)
			continue
		}
		res.Conda = append(res.Conda, candidates[0])
	}
	for _, name := range qp.NotFound() {
		res.Pip = append(res.Pip, byName[name])
	}
	res.DependencyStats = qp.Stats()
	return nil
}

// EnvironmentPath returns where the environment of a project is written:
// "<project>/<project name>.conda.yaml". A lock file path resolves to its
// directory.
func EnvironmentPath(project string) (path, name string) {
	dir := project
	if filepath.Base(project) == pipenv.FileName {
		dir = filepath.Dir(project)
	}
	dir = filepath.Clean(dir)
	name = filepath.Base(dir)
	return filepath.Join(dir, name+".conda.yaml"), name
}
