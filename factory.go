package affected

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/git-pkgs/affected/cache"
	"github.com/git-pkgs/affected/debiancache"
)

const (
	defaultUserAgent = "affected"
	defaultCacheTTL  = 6 * time.Hour
	debianPrefix     = "Debian:"
)

// Endpoints holds the base URLs of the upstream services. Zero fields fall
// back to the public services.
type Endpoints struct {
	PyPI     string
	Maven    string
	RubyGems string
	NuGet    string
	Debian   string
	DepsDev  string

	// DebianFirstVersions is the first-version snapshot used to resolve
	// Debian's introduced "0". It is a full URL, not a base.
	DebianFirstVersions string
}

// DefaultEndpoints returns the public registry base URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		PyPI:     "https://pypi.org",
		Maven:    "https://search.maven.org",
		RubyGems: "https://rubygems.org",
		NuGet:    "https://api.nuget.org",
		Debian:   "https://snapshot.debian.org",
		DepsDev:  "https://api.deps.dev",

		DebianFirstVersions: debiancache.DefaultURL,
	}
}

// FirstVersionResolver finds the first version of a package in a Debian
// release, returning "0" when it is not known.
type FirstVersionResolver interface {
	FirstVersion(ctx context.Context, pkg, release string) (string, error)
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	userAgent          string
	httpClient         *http.Client
	logger             *zap.Logger
	cache              cache.Cache
	cacheTTL           time.Duration
	retries            uint64
	useDepsDev         bool
	depsDevAPIKey      string
	ecosystemsFallback bool
	firstVersions      FirstVersionResolver
	endpoints          Endpoints
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithHTTPClient sets the client used for registry requests. Request
// timeouts belong to this client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCache enables the shared cache for Maven version lists and Debian
// snapshot responses.
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithCacheTTL sets the expiry of shared cache entries.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithRetries retries transient registry failures up to n times with
// exponential backoff. The default is 0: failures go straight to the caller.
func WithRetries(n uint64) Option {
	return func(o *options) {
		o.retries = n
	}
}

// WithDepsDev lists Maven and PyPI versions through deps.dev instead of the
// registries.
func WithDepsDev(apiKey string) Option {
	return func(o *options) {
		o.useDepsDev = true
		o.depsDevAPIKey = apiKey
	}
}

// WithEcosystemsFallback retries transient registry failures once against
// the ecosyste.ms API.
func WithEcosystemsFallback() Option {
	return func(o *options) {
		o.ecosystemsFallback = true
	}
}

// WithFirstVersions sets how Debian resolves introduced "0" to the first
// version of a release. The default downloads the snapshot at
// Endpoints.DebianFirstVersions and keeps it in the shared cache.
func WithFirstVersions(r FirstVersionResolver) Option {
	return func(o *options) {
		o.firstVersions = r
	}
}

// WithEndpoints overrides upstream base URLs.
func WithEndpoints(e Endpoints) Option {
	return func(o *options) {
		o.endpoints = e
	}
}

func buildOptions(opts []Option) options {
	o := options{
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
		cacheTTL:   defaultCacheTTL,
		endpoints:  DefaultEndpoints(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	defaults := DefaultEndpoints()
	e := &o.endpoints
	e.PyPI = baseURL(e.PyPI, defaults.PyPI)
	e.Maven = baseURL(e.Maven, defaults.Maven)
	e.RubyGems = baseURL(e.RubyGems, defaults.RubyGems)
	e.NuGet = baseURL(e.NuGet, defaults.NuGet)
	e.Debian = baseURL(e.Debian, defaults.Debian)
	e.DepsDev = baseURL(e.DepsDev, defaults.DepsDev)
	if e.DebianFirstVersions == "" {
		e.DebianFirstVersions = defaults.DebianFirstVersions
	}

	if o.firstVersions == nil {
		o.firstVersions = debiancache.New(
			debiancache.WithURL(e.DebianFirstVersions),
			debiancache.WithHTTPClient(o.httpClient),
			debiancache.WithCache(o.cache),
			debiancache.WithLogger(o.logger),
		)
	}
	return o
}

func baseURL(u, def string) string {
	if u == "" {
		u = def
	}
	return strings.TrimSuffix(u, "/")
}

// Registry maps ecosystem names to Ecosystem implementations.
type Registry struct {
	opts       options
	req        *requestHelper
	ecosystems map[string]Ecosystem
}

// New builds a Registry. All configuration is fixed at construction, so
// registries with different options can be used side by side.
func New(opts ...Option) (*Registry, error) {
	o := buildOptions(opts)
	r := &Registry{
		opts: o,
		req:  newRequestHelper(o),
	}

	var fallback func(ecosystem string) versionLister
	if o.ecosystemsFallback {
		eco, err := newEcosystemsClient(o.userAgent)
		if err != nil {
			return nil, err
		}
		fallback = eco.source
	}
	withFallback := func(ecosystem string, primary versionLister) versionLister {
		if fallback == nil {
			return primary
		}
		return newHybridSource(primary, fallback(ecosystem), o.logger)
	}

	var depsDev *DepsDevClient
	if o.useDepsDev {
		depsDev = newDepsDevClient(o.endpoints.DepsDev, o.depsDevAPIKey, r.req)
	}

	registriesClient := newRegistriesClient(o)
	pypiRegistry, err := newRegistryLister(EcosystemPyPI, o.endpoints.PyPI, registriesClient)
	if err != nil {
		return nil, err
	}
	var pypiSource versionLister = pypiRegistry
	if depsDev != nil {
		pypiSource = depsDev.source(EcosystemPyPI)
	}

	var mavenSource versionLister = &mavenSearch{req: r.req, baseURL: o.endpoints.Maven}
	if depsDev != nil {
		mavenSource = depsDev.source(EcosystemMaven)
	}
	mavenSource = &cachedSource{
		family: EcosystemMaven,
		inner:  withFallback(EcosystemMaven, mavenSource),
		cache:  o.cache,
		ttl:    o.cacheTTL,
		logger: o.logger,
	}

	gemsSource, err := newRegistryLister(EcosystemRubyGems, o.endpoints.RubyGems, registriesClient)
	if err != nil {
		return nil, err
	}

	r.ecosystems = map[string]Ecosystem{
		EcosystemCratesIO: NewSemver(EcosystemCratesIO),
		EcosystemGo:       NewSemver(EcosystemGo),
		EcosystemNPM:      NewSemver(EcosystemNPM),
		EcosystemMaven:    &Maven{source: mavenSource},
		EcosystemNuGet: &NuGet{
			source: withFallback(EcosystemNuGet, &nugetRegistry{req: r.req, baseURL: o.endpoints.NuGet}),
		},
		EcosystemPyPI:     &PyPI{source: withFallback(EcosystemPyPI, pypiSource)},
		EcosystemRubyGems: &RubyGems{source: withFallback(EcosystemRubyGems, gemsSource)},
	}
	return r, nil
}

// Get returns the Ecosystem for name, or nil when it is not supported.
// "Debian:<release>" builds a Debian ecosystem scoped to that release.
func (r *Registry) Get(name string) Ecosystem {
	if rest, ok := strings.CutPrefix(name, debianPrefix); ok {
		release, _, _ := strings.Cut(rest, ":")
		if release == "" {
			return nil
		}
		return r.newDebian(release)
	}

	e, ok := r.ecosystems[name]
	if !ok {
		return nil
	}
	return e
}

// Names returns the supported unqualified ecosystem names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ecosystems))
	for name := range r.ecosystems {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) newDebian(release string) *Debian {
	return &Debian{
		release:       release,
		source:        &debianSnapshot{req: r.req, baseURL: r.opts.endpoints.Debian},
		firstVersions: r.opts.firstVersions,
		logger:        r.opts.logger,
	}
}

// Normalize strips the qualifier from an ecosystem name, so that
// "Debian:11" becomes "Debian".
func Normalize(name string) string {
	base, _, _ := strings.Cut(name, ":")
	return base
}
