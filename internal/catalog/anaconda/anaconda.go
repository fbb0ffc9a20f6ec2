// Package anaconda searches the anaconda.org HTTP API and reshapes its file
// listings into the payload produced by "conda search --json".
package anaconda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/condamigrate/client"
	"github.com/git-pkgs/condamigrate/internal/catalog"
)

const (
	DefaultURL     = "https://api.anaconda.org"
	DefaultChannel = "conda-forge"
	backend        = "anaconda"
)

func init() {
	catalog.Register(backend, DefaultURL, func(opts catalog.Options) catalog.Searcher {
		return New(opts.BaseURL, opts.Client, opts.Channels...)
	})
}

// Searcher queries one or more anaconda.org channels.
type Searcher struct {
	baseURL  string
	channels []string
	client   *client.Client
}

// New returns a searcher for baseURL. Channels are searched in order; with
// none given DefaultChannel is used.
func New(baseURL string, c *client.Client, channels ...string) *Searcher {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = client.DefaultClient()
	}
	if len(channels) == 0 {
		channels = []string{DefaultChannel}
	}
	return &Searcher{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		channels: append([]string(nil), channels...),
		client:   c,
	}
}

type packageResponse struct {
	Name          string     `json:"name"`
	LatestVersion string     `json:"latest_version"`
	Versions      []string   `json:"versions"`
	Files         []fileInfo `json:"files"`
	Owner         string     `json:"owner"`
}

type fileInfo struct {
	Version     string    `json:"version"`
	Basename    string    `json:"basename"`
	Type        string    `json:"type"`
	Attrs       fileAttrs `json:"attrs"`
	UploadTime  string    `json:"upload_time"`
	MD5         string    `json:"md5"`
	SHA256      string    `json:"sha256"`
	Size        int64     `json:"size"`
	DownloadURL string    `json:"download_url"`
}

type fileAttrs struct {
	Build       string   `json:"build"`
	BuildNumber *int     `json:"build_number"`
	Depends     []string `json:"depends"`
	Constrains  []string `json:"constrains"`
	License     string   `json:"license"`
	Subdir      string   `json:"subdir"`
	Platform    string   `json:"platform"`
	Arch        string   `json:"arch"`
	Timestamp   int64    `json:"timestamp"`
}

// Record is one entry of the search payload, using conda's field names.
type Record struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Build       string   `json:"build"`
	BuildNumber *int     `json:"build_number,omitempty"`
	Depends     []string `json:"depends"`
	Constrains  []string `json:"constrains,omitempty"`
	License     string   `json:"license,omitempty"`
	Subdir      string   `json:"subdir,omitempty"`
	Channel     string   `json:"channel"`
	Filename    string   `json:"fn,omitempty"`
	URL         string   `json:"url,omitempty"`
	MD5         string   `json:"md5,omitempty"`
	SHA256      string   `json:"sha256,omitempty"`
	Size        int64    `json:"size,omitempty"`
	Timestamp   int64    `json:"timestamp,omitempty"`
}

// parsePackageName parses a package name that may include a channel prefix
// Format: "channel/name" or just "name"
func parsePackageName(name string) (channel, pkgName string) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", name
}

// Search fetches every configured channel and merges the conda files of
// name into {"<name>": [records...]}. A package missing from all channels
// is reported as not found.
func (s *Searcher) Search(ctx context.Context, name string) ([]byte, error) {
	channel, pkgName := parsePackageName(name)
	channels := s.channels
	if channel != "" {
		channels = []string{channel}
	}

	records := []Record{}
	found := false
	for _, ch := range channels {
		url := fmt.Sprintf("%s/package/%s/%s", s.baseURL, ch, pkgName)

		var resp packageResponse
		if err := s.client.GetJSON(ctx, url, &resp); err != nil {
			var httpErr *client.HTTPError
			if errors.As(err, &httpErr) && httpErr.IsNotFound() {
				continue
			}
			return nil, &catalog.QueryError{Name: name, Err: err}
		}
		found = true
		records = append(records, toRecords(pkgName, ch, resp.Files)...)
	}

	if !found {
		notFound := &client.NotFoundError{Channel: strings.Join(channels, ","), Name: pkgName}
		return nil, &catalog.QueryError{Name: name, Err: fmt.Errorf("%w: %w", catalog.ErrNotFound, notFound)}
	}

	body, err := json.Marshal(map[string][]Record{pkgName: records})
	if err != nil {
		return nil, &catalog.QueryError{Name: name, Err: err}
	}
	return body, nil
}

func toRecords(name, channel string, files []fileInfo) []Record {
	records := make([]Record, 0, len(files))
	for _, f := range files {
		if f.Type != "" && f.Type != "conda" {
			continue
		}
		subdir := f.Attrs.Subdir
		filename := f.Basename
		if i := strings.LastIndexByte(filename, '/'); i >= 0 {
			if subdir == "" {
				subdir = filename[:i]
			}
			filename = filename[i+1:]
		}
		depends := f.Attrs.Depends
		if depends == nil {
			depends = []string{}
		}
		url := f.DownloadURL
		if strings.HasPrefix(url, "//") {
			url = "https:" + url
		}
		records = append(records, Record{
			Name:        name,
			Version:     f.Version,
			Build:       f.Attrs.Build,
			BuildNumber: f.Attrs.BuildNumber,
			Depends:     depends,
			Constrains:  f.Attrs.Constrains,
			License:     f.Attrs.License,
			Subdir:      subdir,
			Channel:     channel,
			Filename:    filename,
			URL:         url,
			MD5:         f.MD5,
			SHA256:      f.SHA256,
			Size:        f.Size,
			Timestamp:   f.Attrs.Timestamp,
		})
	}
	return records
}
