// Package pipenv reads the packages pinned by a Pipfile.lock.
package pipenv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/git-pkgs/condamigrate/internal/core"
)

// FileName is the lock file looked up inside a project directory.
const FileName = "Pipfile.lock"

// EditableVersion is the pin given to editable packages, which have no
// published version.
const EditableVersion = "==0.0.0"

// InstallMode selects the lock sections that are read.
type InstallMode int

const (
	// Default reads the "default" section only.
	Default InstallMode = iota
	// Dev reads the "default" and "develop" sections.
	Dev
)

func (m InstallMode) String() string {
	if m == Dev {
		return "develop"
	}
	return "default"
}

func (m InstallMode) sections() []string {
	if m == Dev {
		return []string{"default", "develop"}
	}
	return []string{"default"}
}

// PackageFilter narrows the packages yielded by LockFile.Packages.
type PackageFilter int

const (
	AllPackages PackageFilter = iota
	EditablesOnly
	ExcludeEditables
)

func (f PackageFilter) keep(e entry) bool {
	switch f {
	case EditablesOnly:
		return e.Editable
	case ExcludeEditables:
		return !e.Editable
	default:
		return true
	}
}

// LockFileNotFoundError is returned when no lock file exists at the given path.
type LockFileNotFoundError struct {
	Path string
}

func (e *LockFileNotFoundError) Error() string {
	return fmt.Sprintf("%s not found at %s", FileName, e.Path)
}

func (e *LockFileNotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

type entry struct {
	Version  string `json:"version"`
	Editable bool   `json:"editable"`
	Path     string `json:"path"`
}

type source struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	VerifySSL bool   `json:"verify_ssl"`
}

type meta struct {
	Requires struct {
		PythonVersion     string `json:"python_version"`
		PythonFullVersion string `json:"python_full_version"`
	} `json:"requires"`
	Sources []source `json:"sources"`
}

type document struct {
	Meta    meta             `json:"_meta"`
	Default map[string]entry `json:"default"`
	Develop map[string]entry `json:"develop"`
}

func (d *document) section(name string) map[string]entry {
	if name == "develop" {
		return d.Develop
	}
	return d.Default
}

// LockFile is a parsed Pipfile.lock.
type LockFile struct {
	path string
	doc  document
	mode InstallMode
}

// Option configures a LockFile.
type Option func(*LockFile)

// WithMode sets the install mode. The default is Dev.
func WithMode(m InstallMode) Option {
	return func(l *LockFile) {
		l.mode = m
	}
}

// Load reads a lock file. path may be the file itself or the project
// directory containing it.
func Load(path string, opts ...Option) (*LockFile, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LockFileNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	l, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	l.path = path
	return l, nil
}

// Parse decodes lock file contents.
func Parse(data []byte, opts ...Option) (*LockFile, error) {
	l := &LockFile{mode: Dev}
	if err := json.Unmarshal(data, &l.doc); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the file the lock was loaded from, if any.
func (l *LockFile) Path() string {
	return l.path
}

// Mode returns the install mode.
func (l *LockFile) Mode() InstallMode {
	return l.mode
}

// Packages yields the name and version of every package kept by filter.
// Sections are visited in order and names sorted within a section. The
// version is empty when the lock records none.
func (l *LockFile) Packages(filter PackageFilter) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, section := range l.mode.sections() {
			entries := l.doc.section(section)
			names := make([]string, 0, len(entries))
			for name := range entries {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				e := entries[name]
				if !filter.keep(e) {
					continue
				}
				if !yield(name, e.Version) {
					return
				}
			}
		}
	}
}

// All yields every package of the selected sections.
func (l *LockFile) All() iter.Seq2[string, string] {
	return l.Packages(AllPackages)
}

// Dependencies returns the non-editable packages as requirements. A package
// present in both sections is returned once.
func (l *LockFile) Dependencies() ([]core.Requirement, error) {
	var reqs []core.Requirement
	seen := make(map[string]bool)
	for name, ver := range l.Packages(ExcludeEditables) {
		if seen[name] {
			continue
		}
		seen[name] = true
		req, err := core.RequirementFromLock(name, ver)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", name, ver, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Editables returns the names of editable packages.
func (l *LockFile) Editables() []string {
	var names []string
	for name := range l.Packages(EditablesOnly) {
		names = append(names, name)
	}
	return names
}

// Requirement returns the requirement recorded for name, looking in the
// default section first. Editable packages are pinned to EditableVersion.
func (l *LockFile) Requirement(name string) (core.Requirement, bool, error) {
	for _, section := range []string{"default", "develop"} {
		e, ok := l.doc.section(section)[name]
		if !ok {
			continue
		}
		ver := e.Version
		if e.Editable {
			ver = EditableVersion
		}
		req, err := core.RequirementFromLock(name, ver)
		if err != nil {
			return core.Requirement{}, false, fmt.Errorf("%s %s: %w", name, ver, err)
		}
		return req, true, nil
	}
	return core.Requirement{}, false, nil
}

// PythonRequirement returns the python interpreter pinned by the lock. The
// full version is preferred; a minor version pins every patch release.
func (l *LockFile) PythonRequirement() (*core.PinnedPackage, bool, error) {
	req := l.doc.Meta.Requires
	var spec string
	switch {
	case req.PythonFullVersion != "":
		spec = "==" + req.PythonFullVersion
	case req.PythonVersion != "":
		spec = "==" + req.PythonVersion + ".*"
	default:
		return nil, false, nil
	}
	pin, err := core.PinnedFromSpecifier("python", spec)
	if err != nil {
		return nil, false, err
	}
	return pin, true, nil
}

// Sources returns the package index URLs declared by the lock, except pypi.org.
func (l *LockFile) Sources() []string {
	var urls []string
	for _, s := range l.doc.Meta.Sources {
		if s.URL == "" {
			continue
		}
		if u, err := url.Parse(s.URL); err == nil && u.Hostname() == "pypi.org" {
			continue
		}
		urls = append(urls, s.URL)
	}
	return urls
}
