package version

import (
	"fmt"
	"strings"
)

// InvalidSpecifierError is returned when a string is not a valid specifier.
type InvalidSpecifierError struct {
	Specifier string
}

func (e *InvalidSpecifierError) Error() string {
	return fmt.Sprintf("Specifier %q is invalid.", e.Specifier)
}

func (e *InvalidSpecifierError) Unwrap() error {
	return ErrInvalid
}

// Specifier is a single operator and version, e.g. ">=1.19" or "==3.8.*".
type Specifier struct {
	op       string
	version  *Version
	text     string // version text as written, without the operator
	wildcard bool
}

// ParseSpecifier parses a single specifier. A bare "=" is read as "==".
// The version part is used as written; callers that deal with catalog data
// should pass it through Canonicalize first.
func ParseSpecifier(s string) (*Specifier, error) {
	op, rest := SplitOperator(s)
	if op == "" || rest == "" {
		return nil, &InvalidSpecifierError{Specifier: strings.TrimSpace(s)}
	}
	if op == "=" {
		op = "=="
	}

	spec := &Specifier{op: op, text: rest}
	if op == "===" {
		return spec, nil
	}

	text := rest
	if strings.HasSuffix(text, ".*") {
		if op != "==" && op != "!=" {
			return nil, &InvalidSpecifierError{Specifier: strings.TrimSpace(s)}
		}
		spec.wildcard = true
		text = strings.TrimSuffix(text, ".*")
	}

	v, err := Parse(text)
	if err != nil {
		return nil, &InvalidSpecifierError{Specifier: strings.TrimSpace(s)}
	}
	if spec.wildcard && (v.pre != nil || v.post != nil || v.dev != nil || v.local != "") {
		return nil, &InvalidSpecifierError{Specifier: strings.TrimSpace(s)}
	}
	if op == "~=" && len(v.release) < 2 {
		return nil, &InvalidSpecifierError{Specifier: strings.TrimSpace(s)}
	}
	spec.version = v
	return spec, nil
}

// Operator returns the normalized operator ("==" for a bare "=").
func (s *Specifier) Operator() string {
	return s.op
}

// Version returns the specifier's version text without the operator.
func (s *Specifier) Version() string {
	return s.text
}

func (s *Specifier) String() string {
	return s.op + s.text
}

// allowsPrereleases reports whether the specifier explicitly names a
// pre-release, which opts the enclosing set into matching pre-releases.
func (s *Specifier) allowsPrereleases() bool {
	switch s.op {
	case "==", ">=", "<=", "~=", "===":
		return s.version != nil && s.version.IsPrerelease()
	}
	return false
}

// Contains reports whether v matches this single specifier, ignoring the
// pre-release policy applied by SpecifierSet.
func (s *Specifier) Contains(v *Version) bool {
	switch s.op {
	case "===":
		return strings.EqualFold(v.String(), s.text)
	case "==":
		return s.equal(v)
	case "!=":
		return !s.equal(v)
	case "<=":
		return v.public().Compare(s.version) <= 0
	case ">=":
		return v.public().Compare(s.version) >= 0
	case "<":
		pv := v.public()
		if pv.Compare(s.version) >= 0 {
			return false
		}
		if pv.IsPrerelease() && !s.version.IsPrerelease() && sameBase(pv, s.version) {
			return false
		}
		return true
	case ">":
		pv := v.public()
		if pv.Compare(s.version) <= 0 {
			return false
		}
		if pv.IsPostrelease() && !s.version.IsPostrelease() && sameBase(pv, s.version) {
			return false
		}
		return true
	case "~=":
		if v.public().Compare(s.version) < 0 {
			return false
		}
		prefix := s.version.release[:len(s.version.release)-1]
		return v.epoch == s.version.epoch && hasReleasePrefix(v.release, prefix)
	}
	return false
}

func (s *Specifier) equal(v *Version) bool {
	if s.wildcard {
		return v.epoch == s.version.epoch && hasReleasePrefix(v.release, s.version.release)
	}
	if s.version.local == "" {
		return v.public().Compare(s.version) == 0
	}
	return v.Compare(s.version) == 0
}

func hasReleasePrefix(release, prefix []int) bool {
	for i, want := range prefix {
		got := 0
		if i < len(release) {
			got = release[i]
		}
		if got != want {
			return false
		}
	}
	return true
}

func sameBase(a, b *Version) bool {
	return a.epoch == b.epoch && compareRelease(a.release, b.release) == 0
}

// SpecifierSet is a comma-joined AND of specifiers. The empty set matches
// every final release.
type SpecifierSet struct {
	specs []*Specifier
}

// ParseSpecifierSet parses a comma separated list of specifiers.
func ParseSpecifierSet(s string) (*SpecifierSet, error) {
	set := &SpecifierSet{}
	if strings.TrimSpace(s) == "" {
		return set, nil
	}
	for _, part := range strings.Split(s, ",") {
		spec, err := ParseSpecifier(part)
		if err != nil {
			return nil, err
		}
		set.specs = append(set.specs, spec)
	}
	return set, nil
}

// NewSpecifierSet builds a set from already parsed specifiers.
func NewSpecifierSet(specs ...*Specifier) *SpecifierSet {
	return &SpecifierSet{specs: specs}
}

// Specifiers returns the specifiers in the set.
func (s *SpecifierSet) Specifiers() []*Specifier {
	out := make([]*Specifier, len(s.specs))
	copy(out, s.specs)
	return out
}

// Len returns the number of specifiers in the set.
func (s *SpecifierSet) Len() int {
	return len(s.specs)
}

func (s *SpecifierSet) String() string {
	parts := make([]string, len(s.specs))
	for i, spec := range s.specs {
		parts[i] = spec.String()
	}
	return strings.Join(parts, ",")
}

// Contains reports whether v satisfies every specifier in the set.
// Pre-releases only match when one of the specifiers names a pre-release.
func (s *SpecifierSet) Contains(v *Version) bool {
	if v.IsPrerelease() && !s.allowsPrereleases() {
		return false
	}
	for _, spec := range s.specs {
		if !spec.Contains(v) {
			return false
		}
	}
	return true
}

// ContainsString parses v and reports whether it is contained in the set.
// Unparseable versions are never contained.
func (s *SpecifierSet) ContainsString(v string) bool {
	parsed, err := Parse(v)
	if err != nil {
		return false
	}
	return s.Contains(parsed)
}

func (s *SpecifierSet) allowsPrereleases() bool {
	for _, spec := range s.specs {
		if spec.allowsPrereleases() {
			return true
		}
	}
	return false
}
