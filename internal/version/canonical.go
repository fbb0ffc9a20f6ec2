package version

import (
	"strconv"
	"strings"
)

// operators is ordered longest first so that prefix matching is unambiguous.
var operators = []string{"===", "~=", "==", "!=", "<=", ">=", "<", ">", "="}

// SplitOperator splits a leading comparison operator from s. The operator is
// empty when s starts directly with the version.
func SplitOperator(s string) (op, rest string) {
	s = strings.TrimSpace(s)
	for _, candidate := range operators {
		if strings.HasPrefix(s, candidate) {
			return candidate, strings.TrimSpace(s[len(candidate):])
		}
	}
	return "", s
}

// CanonicalVersion strips any leading operator from s and rewrites a trailing
// ASCII letter into a numeric segment: "1.2.3e" and ">=1.2.3e" both become
// "1.2.3.5". Strictly numeric versions are returned unchanged.
func CanonicalVersion(s string) string {
	_, rest := SplitOperator(s)
	return replaceLetterSuffix(rest)
}

// Canonicalize is CanonicalVersion with the operator re-attached, so that
// ">=1.2.3e" becomes ">=1.2.3.5" and "<=1.2.3" stays "<=1.2.3".
func Canonicalize(s string) string {
	op, rest := SplitOperator(s)
	return op + replaceLetterSuffix(rest)
}

func replaceLetterSuffix(v string) string {
	if v == "" {
		return v
	}
	last := v[len(v)-1]
	if last >= 'A' && last <= 'Z' {
		last += 'a' - 'A'
	}
	if last < 'a' || last > 'z' {
		return v
	}
	return v[:len(v)-1] + "." + strconv.Itoa(int(last-'a')+1)
}
