package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cory-johannsen/warsim/internal/config"
)

// MaxBodyBytes caps the size of a scenario fetched over HTTP.
const MaxBodyBytes = 1 << 20

// Source fetches scenarios by reference.
type Source interface {
	Fetch(ctx context.Context, ref string) (*Scenario, error)
}

// FileSource reads scenarios from a directory.
type FileSource struct {
	Dir string
}

var fileExts = []string{".yaml", ".yml", ".json"}

// Fetch loads ref. A ref with an extension is a path (relative refs resolve
// against Dir); a bare name is tried as Dir/<ref>.yaml, .yml and .json in order.
//
// Postcondition: Returns a validated scenario, or an error wrapping ErrNotFound
// when no candidate file exists.
func (s FileSource) Fetch(ctx context.Context, ref string) (*Scenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	var candidates []string
	if filepath.Ext(ref) != "" {
		p := ref
		if !filepath.IsAbs(p) {
			p = filepath.Join(s.Dir, p)
		}
		candidates = []string{p}
	} else {
		for _, ext := range fileExts {
			candidates = append(candidates, filepath.Join(s.Dir, ref+ext))
		}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading scenario %q: %w", path, err)
		}
		sc, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("loading scenario %q: %w", path, err)
		}
		return sc, nil
	}
	return nil, fmt.Errorf("%w: %q in %q", ErrNotFound, ref, s.Dir)
}

// HTTPSource fetches <BaseURL>/<ref>.json.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// Fetch performs a GET for ref.
//
// Precondition: BaseURL must be an absolute http(s) URL.
// Postcondition: Returns a validated scenario. A 404 wraps ErrNotFound; any
// other non-2xx status, or a body larger than MaxBodyBytes, is an error.
func (s HTTPSource) Fetch(ctx context.Context, ref string) (*Scenario, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	target, err := url.JoinPath(s.BaseURL, url.PathEscape(ref)+".json")
	if err != nil {
		return nil, fmt.Errorf("building scenario url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building scenario request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching scenario %q: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, target)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching scenario %q: unexpected status %s", target, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", target, err)
	}
	if len(data) > MaxBodyBytes {
		return nil, fmt.Errorf("scenario %q exceeds %d bytes", target, MaxBodyBytes)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading scenario %q: %w", target, err)
	}
	return sc, nil
}

// Catalog maps a numbered menu choice to a scenario reference.
type Catalog struct {
	Count   int
	Default int
}

// Resolve returns the reference for choice. Choices outside 1..Count fall
// back to Default.
//
// Precondition: 1 <= Default <= Count.
func (c Catalog) Resolve(choice int) string {
	if choice < 1 || choice > c.Count {
		choice = c.Default
	}
	return strconv.Itoa(choice)
}

// Refs returns every reference in the catalog in menu order.
func (c Catalog) Refs() []string {
	refs := make([]string, 0, c.Count)
	for i := 1; i <= c.Count; i++ {
		refs = append(refs, strconv.Itoa(i))
	}
	return refs
}

// ParseChoice converts free-form menu input to a choice; unparsable input
// yields 0, which Resolve maps to the default.
func ParseChoice(input string) int {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0
	}
	return n
}

// NewSource builds the configured source: HTTPSource when BaseURL is set,
// otherwise FileSource over Dir.
func NewSource(cfg config.ScenarioConfig) Source {
	if cfg.BaseURL != "" {
		return HTTPSource{BaseURL: cfg.BaseURL, Client: &http.Client{Timeout: cfg.Timeout}}
	}
	return FileSource{Dir: cfg.Dir}
}

// NewCatalog builds the numbered catalog from cfg.
func NewCatalog(cfg config.ScenarioConfig) Catalog {
	return Catalog{Count: cfg.Count, Default: cfg.DefaultChoice}
}
