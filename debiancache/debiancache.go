// Package debiancache resolves the first version of a source package in a
// Debian release, from a published snapshot of first-seen versions.
package debiancache

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/git-pkgs/affected/cache"
)

const (
	// DefaultURL is the published first-version snapshot, a gzipped JSON
	// object of release -> package -> version.
	DefaultURL = "https://storage.googleapis.com/debian-osv/first_package_cache.json.gz"

	// DefaultTTL is how long loaded entries stay valid.
	DefaultTTL = 24 * time.Hour

	// Earliest is returned when a package has no recorded first version: it
	// was present when the release was first seen, so the start of its
	// snapshot history is its first version.
	Earliest = "0"
)

// FirstVersions looks up first versions, loading the snapshot into a cache
// on a miss.
type FirstVersions struct {
	url        string
	httpClient *http.Client
	cache      cache.Cache
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	loadedAt time.Time
}

// Option configures FirstVersions.
type Option func(*FirstVersions)

// WithURL sets the snapshot location.
func WithURL(u string) Option {
	return func(f *FirstVersions) {
		f.url = u
	}
}

// WithHTTPClient sets the client used to download the snapshot.
func WithHTTPClient(c *http.Client) Option {
	return func(f *FirstVersions) {
		f.httpClient = c
	}
}

// WithCache stores lookups in c instead of a private in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(f *FirstVersions) {
		f.cache = c
	}
}

// WithTTL sets the expiry of loaded entries.
func WithTTL(ttl time.Duration) Option {
	return func(f *FirstVersions) {
		f.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *FirstVersions) {
		f.logger = l
	}
}

// New creates a FirstVersions lookup.
func New(opts ...Option) *FirstVersions {
	f := &FirstVersions{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		ttl:        DefaultTTL,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cache == nil {
		f.cache = cache.NewMemory()
	}
	return f
}

func key(pkg, release string) string {
	return cache.Key("debian-first-version", release, pkg)
}

// FirstVersion returns the first version of pkg in release, or Earliest.
func (f *FirstVersions) FirstVersion(ctx context.Context, pkg, release string) (string, error) {
	if v, ok := f.lookup(ctx, pkg, release); ok {
		return v, nil
	}

	if err := f.refresh(ctx); err != nil {
		return "", err
	}

	if v, ok := f.lookup(ctx, pkg, release); ok {
		return v, nil
	}
	return Earliest, nil
}

func (f *FirstVersions) lookup(ctx context.Context, pkg, release string) (string, bool) {
	data, ok, err := f.cache.Get(ctx, key(pkg, release))
	if err != nil {
		f.logger.Warn("first version cache read failed", zap.Error(err))
		return "", false
	}
	if !ok || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// refresh downloads the snapshot and stores every entry. Concurrent misses
// share one download at a time, and a snapshot loaded within the TTL is not
// fetched again.
func (f *FirstVersions) refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loadedAt.IsZero() && f.now().Sub(f.loadedAt) < f.ttl {
		return nil
	}

	snapshot, err := f.download(ctx)
	if err != nil {
		return err
	}

	count := 0
	for release, sources := range snapshot {
		for pkg, version := range sources {
			if err := f.cache.Set(ctx, key(pkg, release), []byte(version), f.ttl); err != nil {
				return fmt.Errorf("storing first version of %s in %s: %w", pkg, release, err)
			}
			count++
		}
	}
	f.loadedAt = f.now()
	f.logger.Info("loaded Debian first versions", zap.Int("entries", count))
	return nil
}

func (f *FirstVersions) download(ctx context.Context) (map[string]map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("debian first versions: %s", resp.Status)
	}

	body, err := decompress(resp.Body)
	if err != nil {
		return nil, err
	}

	// Releases with no recorded sources are null.
	var snapshot map[string]map[string]string
	if err := json.NewDecoder(body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decoding debian first versions: %w", err)
	}
	return snapshot, nil
}

// decompress gunzips r unless the transport already did.
func decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		return br, nil
	}
	return gzip.NewReader(br)
}
