package core

import (
	"fmt"

	packageurl "github.com/package-url/packageurl-go"
)

const purlType = "conda"

// PURL wraps packageurl.PackageURL with conda-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the package name, prefixed with its channel when the PURL
// carries a namespace: "conda-forge/numpy".
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:conda/numpy) and version PURLs (pkg:conda/numpy@1.19.5).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// RequirementFromPURL converts a conda or pypi PURL into a requirement. The
// channel namespace is dropped; a PURL version becomes an exact restriction.
func RequirementFromPURL(purl string) (Requirement, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return Requirement{}, err
	}
	if p.Type != purlType && p.Type != "pypi" {
		return Requirement{}, fmt.Errorf("unsupported PURL type %q in %s", p.Type, purl)
	}
	if p.Version == "" {
		return Requirement{Name: p.Name, Restriction: NoRestriction()}, nil
	}
	r, err := ExactVersion(p.Version)
	if err != nil {
		return Requirement{}, err
	}
	return Requirement{Name: p.Name, Restriction: r}, nil
}

// PURL returns the package as a conda Package URL. The build string, when
// known, is carried as the "build" qualifier.
func (p Package) PURL() string {
	var qualifiers packageurl.Qualifiers
	if p.Build != "" {
		qualifiers = packageurl.QualifiersFromMap(map[string]string{"build": p.Build})
	}
	return packageurl.NewPackageURL(purlType, "", p.Name, p.Version, qualifiers, "").ToString()
}
