package core

import "github.com/git-pkgs/condamigrate/internal/version"

// RestrictionKind enumerates the forms a version restriction can take.
type RestrictionKind int

const (
	Unrestricted RestrictionKind = iota
	Exact
	Specified
)

func (k RestrictionKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Specified:
		return "specifier"
	default:
		return "none"
	}
}

// Restriction limits which versions of a package are acceptable. The zero
// value accepts every version.
type Restriction struct {
	kind RestrictionKind
	text string
	set  *version.SpecifierSet
}

// NoRestriction accepts any version.
func NoRestriction() Restriction {
	return Restriction{kind: Unrestricted}
}

// ExactVersion accepts only v, compared after canonicalization.
func ExactVersion(v string) (Restriction, error) {
	pin, err := NewPinnedPackage("", v, "=="+v)
	if err != nil {
		return Restriction{}, err
	}
	return Restriction{kind: Exact, text: v, set: pin.Specifier}, nil
}

// SpecifierRestriction accepts versions inside the given specifier set.
func SpecifierRestriction(specifier string) (Restriction, error) {
	set, err := parseCanonicalSet(specifier)
	if err != nil {
		return Restriction{}, err
	}
	return Restriction{kind: Specified, text: specifier, set: set}, nil
}

// PinRestriction restricts to the specifier of an existing pin.
func PinRestriction(pin *PinnedPackage) Restriction {
	return Restriction{kind: Specified, text: pin.Specifier.String(), set: pin.Specifier}
}

// Kind returns the restriction variant.
func (r Restriction) Kind() RestrictionKind {
	return r.kind
}

func (r Restriction) String() string {
	switch r.kind {
	case Exact:
		return "==" + r.text
	case Specified:
		return r.text
	default:
		return "*"
	}
}

// Match reports whether v is accepted by the restriction.
func (r Restriction) Match(v *version.Version) bool {
	switch r.kind {
	case Exact, Specified:
		return r.set.Contains(v)
	default:
		return true
	}
}
