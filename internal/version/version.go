// Package version parses and orders the loosely structured version strings
// found in conda catalogs and Pipfile locks.
//
// Versions follow PEP 440 (epoch, release, pre, post, dev and local parts).
// Catalog versions that end in a bare letter, such as openssl's "1.1.1k", are
// not valid PEP 440 and must be passed through Canonicalize first, which turns
// the trailing letter into an extra numeric release segment.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalid is wrapped by every version and specifier parse error.
var ErrInvalid = errors.New("invalid version")

// InvalidVersionError is returned when a string is not a valid version.
type InvalidVersionError struct {
	Version string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("Version %q is invalid.", e.Version)
}

func (e *InvalidVersionError) Unwrap() error {
	return ErrInvalid
}

var versionPattern = regexp.MustCompile(`(?i)^v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?:[-_.]?(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?:-(?P<post_n1>[0-9]+)|[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?)?` +
	`(?:[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// Version is a parsed PEP 440 version.
type Version struct {
	raw     string
	epoch   int
	release []int
	pre     *preRelease
	post    *int
	dev     *int
	local   string
}

type preRelease struct {
	label string // a, b or rc
	n     int
}

// Parse parses a version string. Surrounding whitespace is ignored.
func Parse(s string) (*Version, error) {
	trimmed := strings.TrimSpace(s)
	m := versionPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, &InvalidVersionError{Version: s}
	}
	group := func(name string) string {
		return m[versionPattern.SubexpIndex(name)]
	}

	v := &Version{raw: trimmed, local: strings.ToLower(group("local"))}

	var err error
	if e := group("epoch"); e != "" {
		if v.epoch, err = strconv.Atoi(e); err != nil {
			return nil, &InvalidVersionError{Version: s}
		}
	}

	for _, part := range strings.Split(group("release"), ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &InvalidVersionError{Version: s}
		}
		v.release = append(v.release, n)
	}

	if l := group("pre_l"); l != "" {
		n, err := atoiDefault(group("pre_n"))
		if err != nil {
			return nil, &InvalidVersionError{Version: s}
		}
		v.pre = &preRelease{label: normalizePreLabel(l), n: n}
	}

	if n1 := group("post_n1"); n1 != "" {
		n, err := strconv.Atoi(n1)
		if err != nil {
			return nil, &InvalidVersionError{Version: s}
		}
		v.post = &n
	} else if group("post_l") != "" {
		n, err := atoiDefault(group("post_n2"))
		if err != nil {
			return nil, &InvalidVersionError{Version: s}
		}
		v.post = &n
	}

	if group("dev_l") != "" {
		n, err := atoiDefault(group("dev_n"))
		if err != nil {
			return nil, &InvalidVersionError{Version: s}
		}
		v.dev = &n
	}

	return v, nil
}

// MustParse is like Parse but panics on invalid input. Intended for tests and constants.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func atoiDefault(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func normalizePreLabel(l string) string {
	switch strings.ToLower(l) {
	case "a", "alpha":
		return "a"
	case "b", "beta":
		return "b"
	default:
		return "rc"
	}
}

// String returns the version as it was parsed.
func (v *Version) String() string {
	return v.raw
}

// Release returns a copy of the numeric release segments.
func (v *Version) Release() []int {
	out := make([]int, len(v.release))
	copy(out, v.release)
	return out
}

// Base returns the epoch and release parts only, e.g. "1.19.5" for "1.19.5rc1+local".
func (v *Version) Base() string {
	parts := make([]string, len(v.release))
	for i, n := range v.release {
		parts[i] = strconv.Itoa(n)
	}
	base := strings.Join(parts, ".")
	if v.epoch != 0 {
		return fmt.Sprintf("%d!%s", v.epoch, base)
	}
	return base
}

// BaseVersion returns the parsed form of Base.
func (v *Version) BaseVersion() *Version {
	return &Version{raw: v.Base(), epoch: v.epoch, release: v.Release()}
}

// IsPrerelease reports whether the version carries a pre-release or dev part.
func (v *Version) IsPrerelease() bool {
	return v.pre != nil || v.dev != nil
}

// IsPostrelease reports whether the version carries a post-release part.
func (v *Version) IsPostrelease() bool {
	return v.post != nil
}

// Local returns the local version label, without the leading "+".
func (v *Version) Local() string {
	return v.local
}

func (v *Version) public() *Version {
	if v.local == "" {
		return v
	}
	cp := *v
	cp.local = ""
	return &cp
}

// Compare returns -1, 0 or +1 depending on whether v orders before, equal to
// or after other.
func (v *Version) Compare(other *Version) int {
	if c := cmpInt(v.epoch, other.epoch); c != 0 {
		return c
	}
	if c := compareRelease(v.release, other.release); c != 0 {
		return c
	}
	if c := cmpInt(v.preRank(), other.preRank()); c != 0 {
		return c
	}
	if v.pre != nil && other.pre != nil {
		if c := cmpInt(v.pre.n, other.pre.n); c != 0 {
			return c
		}
	}
	if c := cmpOptional(v.post, other.post, -1); c != 0 {
		return c
	}
	if c := cmpOptional(v.dev, other.dev, 1); c != 0 {
		return c
	}
	return compareLocal(v.local, other.local)
}

// preRank orders the pre-release phase: a dev-only release sorts before any
// pre-release, and a final release sorts after all of them.
func (v *Version) preRank() int {
	switch {
	case v.pre == nil && v.post == nil && v.dev != nil:
		return -1
	case v.pre == nil:
		return 3
	case v.pre.label == "a":
		return 0
	case v.pre.label == "b":
		return 1
	default:
		return 2
	}
}

// Equal reports whether both versions compare equal.
func (v *Version) Equal(other *Version) bool {
	return v.Compare(other) == 0
}

func compareRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmpInt(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// cmpOptional compares two optional numbers; a missing value is treated as
// smaller than any number when missing < 0 and larger when missing > 0.
func cmpOptional(a, b *int, missing int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return missing
	case b == nil:
		return -missing
	default:
		return cmpInt(*a, *b)
	}
}

func compareLocal(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	as := strings.FieldsFunc(a, isLocalSeparator)
	bs := strings.FieldsFunc(b, isLocalSeparator)
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		switch {
		case aErr == nil && bErr == nil:
			if c := cmpInt(an, bn); c != 0 {
				return c
			}
		case aErr == nil:
			return 1
		case bErr == nil:
			return -1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(as), len(bs))
}

func isLocalSeparator(r rune) bool {
	return r == '.' || r == '-' || r == '_'
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
