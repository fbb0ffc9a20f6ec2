package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction is wrapped by errors raised while building a pin.
	ErrConstruction = errors.New("invalid package construction")

	// ErrParse is wrapped by malformed constraint errors.
	ErrParse = errors.New("malformed constraint")

	// ErrNotComparable is wrapped when a package cannot be ranked.
	ErrNotComparable = errors.New("package not comparable")
)

// BrokenSpecifierError is returned when a pinned version falls outside its own specifier.
type BrokenSpecifierError struct {
	Version   string
	Specifier string
}

func (e *BrokenSpecifierError) Error() string {
	return fmt.Sprintf("Broken specifier: version %q does not fulfil specifier %q contract.", e.Version, e.Specifier)
}

func (e *BrokenSpecifierError) Unwrap() error {
	return ErrConstruction
}

// InvalidConstraintError is returned for a constraint or depends entry that cannot be parsed.
type InvalidConstraintError struct {
	Specification string
	Err           error
}

func (e *InvalidConstraintError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid constraint %q: %v", e.Specification, e.Err)
	}
	return fmt.Sprintf("invalid constraint %q", e.Specification)
}

func (e *InvalidConstraintError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// NotComparableError is returned when ranking a package that has neither a
// version nor a build number.
type NotComparableError struct {
	Name string
}

func (e *NotComparableError) Error() string {
	return fmt.Sprintf("Package %q cannot be compared to another package: no version information found", e.Name)
}

func (e *NotComparableError) Unwrap() error {
	return ErrNotComparable
}
