// Package conda searches package catalogs by running the conda or mamba
// command line with --json output.
package conda

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/git-pkgs/condamigrate/internal/catalog"
)

const (
	BackendConda = "conda"
	BackendMamba = "mamba"

	// waitDelay bounds how long Search waits for output pipes after the
	// command is killed on context expiry.
	waitDelay = time.Second
)

func init() {
	catalog.Register(BackendConda, "conda", func(opts catalog.Options) catalog.Searcher {
		return New(opts.BaseURL, opts.Channels...)
	})
	catalog.Register(BackendMamba, "mamba", func(opts catalog.Options) catalog.Searcher {
		return New(opts.BaseURL, opts.Channels...)
	})
}

// Searcher runs "<executable> search --json" for every query.
type Searcher struct {
	executable    string
	channels      []string
	useIndexCache bool
}

// New returns a searcher for the given executable (a name on PATH or a path)
// restricted to channels, in priority order.
func New(executable string, channels ...string) *Searcher {
	if executable == "" {
		executable = BackendMamba
	}
	return &Searcher{
		executable: executable,
		channels:   append([]string(nil), channels...),
	}
}

// WithIndexCache returns a copy that passes --use-index-cache when use is set.
func (s *Searcher) WithIndexCache(use bool) catalog.Searcher {
	cp := *s
	cp.useIndexCache = use
	return &cp
}

// Args returns the command line arguments used to search for name.
func (s *Searcher) Args(name string) []string {
	args := []string{"search", "--json"}
	if s.useIndexCache {
		args = append(args, "--use-index-cache")
	}
	for _, ch := range s.channels {
		args = append(args, "-c", ch)
	}
	return append(args, name)
}

// Search runs the search command. Output carrying an "error" key is reported
// as not found; a non-zero exit without such output is a query failure.
func (s *Searcher) Search(ctx context.Context, name string) ([]byte, error) {
	if name == "" || strings.HasPrefix(name, "-") {
		return nil, &catalog.QueryError{Name: name, Err: fmt.Errorf("invalid package name")}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.executable, s.Args(name)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	runErr := cmd.Run()

	if ctx.Err() != nil {
		return nil, &catalog.QueryError{Name: name, Err: ctx.Err()}
	}

	out := stdout.Bytes()
	if err := catalog.CheckPayload(name, out); err != nil {
		if errors.Is(err, catalog.ErrNotFound) || runErr == nil {
			return nil, err
		}
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, &catalog.QueryError{Name: name, Err: fmt.Errorf("%s: %w: %s", s.executable, runErr, msg)}
		}
		return nil, &catalog.QueryError{Name: name, Err: fmt.Errorf("%s: %w", s.executable, runErr)}
	}
	return out, nil
}
