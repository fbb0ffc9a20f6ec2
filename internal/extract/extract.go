// Package extract reads cached catalog payloads and selects the records that
// are compatible with a set of already resolved packages.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/git-pkgs/condamigrate/internal/core"
	"github.com/git-pkgs/condamigrate/internal/version"
)

// Source is the read side of the query cache.
type Source interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
}

// Record is one catalog entry as found in a search payload.
type Record struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build"`
	BuildNumber *int     `json:"build_number"`
	Depends     []string `json:"depends"`
}

// Package returns the record as a core.Package.
func (r Record) Package() core.Package {
	return core.Package{
		Name:        r.Name,
		Version:     r.Version,
		Build:       r.Build,
		BuildNumber: r.BuildNumber,
	}
}

// Constraints parses the record's depends entries. Entries without a space
// name a package without a version restriction and are skipped.
func (r Record) Constraints() ([]*core.Constraint, error) {
	var out []*core.Constraint
	for _, dep := range r.Depends {
		if !strings.Contains(dep, " ") {
			continue
		}
		c, err := core.ConstraintFromDepends(dep)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.Name, r.Version, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Extractor ranks cached catalog records.
type Extractor struct {
	source Source
	logger core.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// New returns an extractor reading payloads from source.
func New(source Source, opts ...Option) *Extractor {
	e := &Extractor{source: source, logger: core.DiscardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Records returns the catalog records cached for name. ok is false when
// nothing is cached or the payload has no entry for name.
func (e *Extractor) Records(ctx context.Context, name string) ([]Record, bool, error) {
	data, ok, err := e.source.Get(ctx, name)
	if err != nil || !ok {
		return nil, false, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("decoding cached payload for %s: %w", name, err)
	}
	raw, ok := doc[name]
	if !ok {
		return nil, false, nil
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("decoding cached records for %s: %w", name, err)
	}
	for i := range records {
		if records[i].Name == "" {
			records[i].Name = name
		}
	}
	return records, true, nil
}

// ExtractMatching returns the cached records of name whose version satisfies
// restriction and whose declared dependencies accept every condition package,
// newest first. A record that declares no constraint on a condition package
// is not rejected on its account. Nothing cached yields an empty result.
func (e *Extractor) ExtractMatching(ctx context.Context, name string, restriction core.Restriction, conditions []core.Package) ([]core.Package, error) {
	records, ok, err := e.Records(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.logger.Debug("no cached payload", "package", name)
		return []core.Package{}, nil
	}

	matched := []core.Package{}
	for _, rec := range records {
		keep, err := accepts(rec, restriction, conditions)
		if err != nil {
			return nil, err
		}
		if keep {
			matched = append(matched, rec.Package())
		}
	}

	if err := core.SortPackages(matched); err != nil {
		return nil, err
	}
	e.logger.Debug("extracted candidates", "package", name, "restriction", restriction.String(),
		"candidates", len(records), "matched", len(matched))
	return matched, nil
}

// ExtractPackages extracts the candidates of a requirement.
func (e *Extractor) ExtractPackages(ctx context.Context, req core.Requirement, conditions []core.Package) ([]core.Package, error) {
	return e.ExtractMatching(ctx, req.Name, req.Restriction, conditions)
}

// ExtractPinnedPackages extracts the candidates allowed by the pin's specifier.
func (e *Extractor) ExtractPinnedPackages(ctx context.Context, pin *core.PinnedPackage, conditions []core.Package) ([]core.Package, error) {
	return e.ExtractMatching(ctx, pin.Name, core.PinRestriction(pin), conditions)
}

func accepts(rec Record, restriction core.Restriction, conditions []core.Package) (bool, error) {
	constraints, err := rec.Constraints()
	if err != nil {
		return false, err
	}

	for _, cond := range conditions {
		stated := false
		satisfied := false
		var v *version.Version
		for _, c := range constraints {
			if c.PkgName() != cond.Name {
				continue
			}
			if !stated && cond.Version != "" {
				if v, err = cond.ParseVersion(); err != nil {
					return false, fmt.Errorf("condition %s: %w", cond.Name, err)
				}
			}
			stated = true
			// A condition without a version never satisfies a stated constraint.
			if v != nil && c.EnsureVersion(v) {
				satisfied = true
				break
			}
		}
		if stated && !satisfied {
			return false, nil
		}
	}

	if restriction.Kind() == core.Unrestricted {
		return true, nil
	}
	if rec.Version == "" {
		return false, nil
	}
	v, err := rec.Package().ParseVersion()
	if err != nil {
		return false, err
	}
	return restriction.Match(v.BaseVersion()), nil
}
