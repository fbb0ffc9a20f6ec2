// Package core provides the package, pin and constraint types shared by the
// query planner and the cache extractor.
package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/git-pkgs/condamigrate/internal/version"
)

// Package is a single catalog record or an already resolved environment package.
type Package struct {
	Name        string
	Version     string // empty when unknown
	Build       string // e.g. "py38he594345_3"
	BuildNumber *int
}

// NewPackage returns a package with only a name and version.
func NewPackage(name, ver string) Package {
	return Package{Name: name, Version: ver}
}

// BuildNum is a convenience for filling Package.BuildNumber.
func BuildNum(n int) *int {
	return &n
}

func (p Package) String() string {
	if p.Version != "" {
		return p.Name + "-" + p.Version
	}
	return p.Name
}

// Equal reports whether two packages carry the same identity and build metadata.
func (p Package) Equal(other Package) bool {
	if p.Name != other.Name || p.Version != other.Version || p.Build != other.Build {
		return false
	}
	if p.BuildNumber == nil || other.BuildNumber == nil {
		return p.BuildNumber == nil && other.BuildNumber == nil
	}
	return *p.BuildNumber == *other.BuildNumber
}

// FormatConda renders the package as a conda match spec: "name=version=build".
func (p Package) FormatConda() string {
	switch {
	case p.Version == "":
		return p.Name
	case p.Build == "":
		return p.Name + "=" + p.Version
	default:
		return p.Name + "=" + p.Version + "=" + p.Build
	}
}

// FormatPip renders the package as a pip requirement: "name==version".
func (p Package) FormatPip() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "==" + version.CanonicalVersion(p.Version)
}

// ParseVersion parses the canonicalized form of the package version.
func (p Package) ParseVersion() (*version.Version, error) {
	return version.Parse(version.CanonicalVersion(p.Version))
}

// SortKey orders packages by version, then by build number.
type SortKey struct {
	Version     *version.Version
	BuildNumber *int
}

// CompareKey returns the key used to rank the package. It fails with a
// *NotComparableError when the package has neither a version nor a build number.
func (p Package) CompareKey() (SortKey, error) {
	if p.Version == "" && p.BuildNumber == nil {
		return SortKey{}, &NotComparableError{Name: p.Name}
	}
	key := SortKey{BuildNumber: p.BuildNumber}
	if p.Version != "" {
		v, err := p.ParseVersion()
		if err != nil {
			return SortKey{}, err
		}
		key.Version = v
	}
	return key, nil
}

// Compare orders two keys. A key missing a component sorts before one that has it.
func (k SortKey) Compare(other SortKey) int {
	switch {
	case k.Version != nil && other.Version != nil:
		if c := k.Version.Compare(other.Version); c != 0 {
			return c
		}
	case k.Version != nil:
		return 1
	case other.Version != nil:
		return -1
	}

	switch {
	case k.BuildNumber != nil && other.BuildNumber != nil:
		return compareInts(*k.BuildNumber, *other.BuildNumber)
	case k.BuildNumber != nil:
		return 1
	case other.BuildNumber != nil:
		return -1
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ComparePackages compares two packages by their sort keys.
func ComparePackages(a, b Package) (int, error) {
	ka, err := a.CompareKey()
	if err != nil {
		return 0, err
	}
	kb, err := b.CompareKey()
	if err != nil {
		return 0, err
	}
	return ka.Compare(kb), nil
}

// SortPackages sorts pkgs in place, newest version and highest build first.
// Packages with equal keys keep their relative order.
func SortPackages(pkgs []Package) error {
	keys := make([]SortKey, len(pkgs))
	for i, p := range pkgs {
		k, err := p.CompareKey()
		if err != nil {
			return err
		}
		keys[i] = k
	}

	idx := make([]int, len(pkgs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return keys[idx[i]].Compare(keys[idx[j]]) > 0
	})

	sorted := make([]Package, len(pkgs))
	for i, j := range idx {
		sorted[i] = pkgs[j]
	}
	copy(pkgs, sorted)
	return nil
}

// PinnedPackage is a package together with the specifier it was pinned with.
type PinnedPackage struct {
	Package
	Specifier *version.SpecifierSet
}

// NewPinnedPackage builds a pin. Both the version and the specifier are
// canonicalized; a version that falls outside the specifier is rejected with a
// *BrokenSpecifierError.
func NewPinnedPackage(name, ver, specifier string) (*PinnedPackage, error) {
	set, err := parseCanonicalSet(specifier)
	if err != nil {
		return nil, err
	}
	if ver != "" {
		v, err := version.Parse(version.CanonicalVersion(ver))
		if err != nil {
			return nil, err
		}
		if !set.Contains(v) {
			return nil, &BrokenSpecifierError{Version: ver, Specifier: specifier}
		}
	}
	return &PinnedPackage{
		Package:   Package{Name: name, Version: ver},
		Specifier: set,
	}, nil
}

// PinnedFromSpecifier builds a pin whose version is taken from the specifier
// when it is a single "==" specifier, and left empty otherwise.
func PinnedFromSpecifier(name, specifier string) (*PinnedPackage, error) {
	set, err := parseCanonicalSet(specifier)
	if err != nil {
		return nil, err
	}
	ver := ""
	if specs := set.Specifiers(); len(specs) == 1 && specs[0].Operator() == "==" && !isWildcard(specs[0].Version()) {
		_, ver = version.SplitOperator(specifier)
	}
	return &PinnedPackage{
		Package:   Package{Name: name, Version: ver},
		Specifier: set,
	}, nil
}

func (p *PinnedPackage) String() string {
	if p.Version != "" {
		return fmt.Sprintf("%s-%s %s", p.Name, p.Version, p.Specifier)
	}
	return fmt.Sprintf("%s %s", p.Name, p.Specifier)
}

// Requirement names a package to extract, optionally restricted to some versions.
type Requirement struct {
	Name        string
	Restriction Restriction
}

func (r Requirement) String() string {
	if r.Restriction.Kind() == Unrestricted {
		return r.Name
	}
	return r.Name + " " + r.Restriction.String()
}

// FormatPip renders the requirement as a pip requirement line.
func (r Requirement) FormatPip() string {
	switch r.Restriction.Kind() {
	case Exact:
		return r.Name + "==" + r.Restriction.text
	case Specified:
		return r.Name + r.Restriction.text
	default:
		return r.Name
	}
}

// RequirementFromLock converts a lock file entry into a requirement. An empty
// value or "*" is unrestricted, a value starting with an operator is a
// specifier set and anything else is an exact version.
func RequirementFromLock(name, value string) (Requirement, error) {
	switch value {
	case "", "*":
		return Requirement{Name: name, Restriction: NoRestriction()}, nil
	}
	if op, _ := version.SplitOperator(value); op != "" {
		r, err := SpecifierRestriction(value)
		if err != nil {
			return Requirement{}, err
		}
		return Requirement{Name: name, Restriction: r}, nil
	}
	r, err := ExactVersion(value)
	if err != nil {
		return Requirement{}, err
	}
	return Requirement{Name: name, Restriction: r}, nil
}

func isWildcard(v string) bool {
	return strings.HasSuffix(v, ".*")
}

func parseCanonicalSet(specifier string) (*version.SpecifierSet, error) {
	var specs []*version.Specifier
	for _, part := range strings.Split(specifier, ",") {
		spec, err := version.ParseSpecifier(version.Canonicalize(part))
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return version.NewSpecifierSet(specs...), nil
}
