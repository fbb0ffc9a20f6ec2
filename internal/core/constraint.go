package core

import (
	"strings"

	"github.com/git-pkgs/condamigrate/internal/version"
)

// Constraint restricts the versions of one named package. Catalog records
// declare their dependencies as constraints.
type Constraint struct {
	pkgName string
	specs   *version.SpecifierSet
}

// NewConstraint builds a constraint from a description such as ">=3.8,<3.9".
// Only the first space separated token of the description is used. Every
// specifier must carry an operator; trailing letters are canonicalized.
func NewConstraint(pkgName, description string) (*Constraint, error) {
	token := strings.TrimSpace(description)
	if i := strings.IndexByte(token, ' '); i >= 0 {
		token = token[:i]
	}

	var specs []*version.Specifier
	for _, part := range strings.Split(token, ",") {
		spec, err := version.ParseSpecifier(version.Canonicalize(part))
		if err != nil {
			return nil, &InvalidConstraintError{Specification: description, Err: err}
		}
		specs = append(specs, spec)
	}
	return &Constraint{pkgName: pkgName, specs: version.NewSpecifierSet(specs...)}, nil
}

// ConstraintFromDepends parses an entry of a catalog record's "depends" list,
// e.g. "python >=3.8,<3.9.0a0" or "blas 1.0 mkl". Specifiers without an
// operator are read as "==". A "*" specifier accepts any version.
func ConstraintFromDepends(depends string) (*Constraint, error) {
	fields := strings.Fields(depends)
	if len(fields) < 2 {
		return nil, &InvalidConstraintError{Specification: depends}
	}

	var parts []string
	for _, part := range strings.Split(fields[1], ",") {
		if part == "*" {
			continue
		}
		canonical := version.Canonicalize(part)
		if op, _ := version.SplitOperator(canonical); op == "" {
			canonical = "==" + canonical
		}
		parts = append(parts, canonical)
	}
	if len(parts) == 0 {
		return &Constraint{pkgName: fields[0], specs: version.NewSpecifierSet()}, nil
	}
	return NewConstraint(fields[0], strings.Join(parts, ","))
}

// PkgName returns the name of the constrained package.
func (c *Constraint) PkgName() string {
	return c.pkgName
}

// Specifiers returns the canonical specifier set.
func (c *Constraint) Specifiers() *version.SpecifierSet {
	return c.specs
}

func (c *Constraint) String() string {
	return c.pkgName + " " + c.specs.String()
}

// Ensure reports whether pkg is the constrained package and its version is
// within the constraint. Packages without a version never satisfy a constraint.
func (c *Constraint) Ensure(pkg Package) bool {
	if pkg.Version == "" || pkg.Name != c.pkgName {
		return false
	}
	return c.specs.ContainsString(version.CanonicalVersion(pkg.Version))
}

// EnsureVersion reports whether an already parsed version is within the
// constraint.
func (c *Constraint) EnsureVersion(v *version.Version) bool {
	return c.specs.Contains(v)
}
