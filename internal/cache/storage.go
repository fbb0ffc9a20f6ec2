package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".json"

// Entry describes one stored payload.
type Entry struct {
	Name string
	Size int64
}

// Storage is the unguarded backing store of a Cache. Implementations need
// not be safe for concurrent use; Cache serializes every call under its lock.
type Storage interface {
	Exists(name string) (bool, error)
	Read(name string) ([]byte, bool, error)
	Write(name string, data []byte) error
	Remove(name string) error
	List() ([]Entry, error)
}

// DirStorage keeps one <name>.json file per package in a directory.
type DirStorage struct {
	dir string
}

// NewDirStorage returns a Storage rooted at dir. The directory is not created.
func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{dir: dir}
}

// Dir returns the storage directory.
func (s *DirStorage) Dir() string {
	return s.dir
}

func (s *DirStorage) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid cache key %q", name)
	}
	return filepath.Join(s.dir, name+fileExt), nil
}

func (s *DirStorage) Exists(name string) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *DirStorage) Read(name string) ([]byte, bool, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Write replaces the file for name: any previous file is removed before the
// new content is written.
func (s *DirStorage) Write(name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (s *DirStorage) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// List returns every *.json file in the directory. Other files, including
// the lock sentinel, are ignored.
func (s *DirStorage) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		entries = append(entries, Entry{
			Name: strings.TrimSuffix(de.Name(), fileExt),
			Size: info.Size(),
		})
	}
	return entries, nil
}
