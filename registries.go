package affected

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/git-pkgs/purl"
	"github.com/git-pkgs/registries"
	_ "github.com/git-pkgs/registries/all"
)

// Ecosystem names as they appear in vulnerability records.
const (
	EcosystemCratesIO = "crates.io"
	EcosystemGo       = "Go"
	EcosystemNPM      = "npm"
	EcosystemMaven    = "Maven"
	EcosystemNuGet    = "NuGet"
	EcosystemPyPI     = "PyPI"
	EcosystemRubyGems = "RubyGems"
	EcosystemDebian   = "Debian"
)

const depsDevBaseURL = "https://deps.dev"

// purlTypes maps ecosystem names to PURL types.
var purlTypes = map[string]string{
	EcosystemCratesIO: "cargo",
	EcosystemGo:       "golang",
	EcosystemNPM:      "npm",
	EcosystemMaven:    "maven",
	EcosystemNuGet:    "nuget",
	EcosystemPyPI:     "pypi",
	EcosystemRubyGems: "gem",
	EcosystemDebian:   "deb",
}

// packageURLs holds the human-facing package page prefix per ecosystem.
var packageURLs = map[string]string{
	EcosystemCratesIO: "https://crates.io/crates/",
	EcosystemGo:       "https://pkg.go.dev/",
	EcosystemNPM:      "https://www.npmjs.com/package/",
	EcosystemMaven:    "https://central.sonatype.com/artifact/",
	EcosystemNuGet:    "https://www.nuget.org/packages/",
	EcosystemPyPI:     "https://pypi.org/project/",
	EcosystemRubyGems: "https://rubygems.org/gems/",
	EcosystemDebian:   "https://packages.debian.org/src:",
}

// PURLType returns the PURL type of an ecosystem, ignoring any qualifier.
func PURLType(ecosystem string) string {
	return purlTypes[Normalize(ecosystem)]
}

// PackagePURL returns the version-less PURL of a package, or "" when the
// ecosystem has no PURL type.
func PackagePURL(ecosystem, pkg string) string {
	base := Normalize(ecosystem)
	typ := purlTypes[base]
	if typ == "" {
		return ""
	}

	switch base {
	case EcosystemMaven:
		group, artifact, ok := strings.Cut(pkg, ":")
		if !ok {
			return ""
		}
		return "pkg:maven/" + url.PathEscape(group) + "/" + url.PathEscape(artifact)
	case EcosystemDebian:
		return "pkg:deb/debian/" + url.PathEscape(pkg)
	case EcosystemGo:
		return "pkg:golang/" + pkg
	}
	return "pkg:" + typ + "/" + url.PathEscape(pkg)
}

// PackageURL returns the registry web page of a package, or "".
func PackageURL(ecosystem, pkg string) string {
	base := Normalize(ecosystem)
	prefix, ok := packageURLs[base]
	if !ok {
		return ""
	}
	if base == EcosystemMaven {
		pkg = strings.Replace(pkg, ":", "/", 1)
	}
	return prefix + pkg
}

// RegistryURL returns the default registry URL of an ecosystem, or "".
func RegistryURL(ecosystem string) string {
	typ := PURLType(ecosystem)
	if typ == "" {
		return ""
	}
	return registries.DefaultURL(typ)
}

// DepsDevSystem returns the deps.dev system of an ecosystem, or "" when
// deps.dev does not cover it.
func DepsDevSystem(ecosystem string) string {
	typ := PURLType(ecosystem)
	if typ == "" {
		return ""
	}
	return strings.ToLower(purl.PURLTypeToDepsdev(typ))
}

// IsSupportedInDepsDev reports whether deps.dev has pages for the ecosystem.
func IsSupportedInDepsDev(ecosystem string) bool {
	return DepsDevSystem(ecosystem) != ""
}

// DepsDevLink returns the deps.dev page of a package, or "".
func DepsDevLink(ecosystem, pkg string) string {
	system := DepsDevSystem(ecosystem)
	if system == "" {
		return ""
	}
	return depsDevBaseURL + "/" + system + "/" + url.PathEscape(pkg)
}

// newRegistriesClient configures the registries HTTP client like the
// request helper: same transport, User-Agent and retry budget.
func newRegistriesClient(o options) *registries.Client {
	c := registries.NewClient(registries.WithMaxRetries(int(o.retries)))
	c.HTTPClient = o.httpClient
	c.UserAgent = o.userAgent
	c.BaseDelay = defaultRetryInterval
	return c
}

// registryLister lists versions through a git-pkgs/registries client.
type registryLister struct {
	ecosystem string
	reg       registries.Registry
}

func newRegistryLister(ecosystem, baseURL string, c *registries.Client) (*registryLister, error) {
	reg, err := registries.New(PURLType(ecosystem), baseURL, c)
	if err != nil {
		return nil, err
	}
	return &registryLister{ecosystem: ecosystem, reg: reg}, nil
}

func (l *registryLister) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	versions, err := l.reg.FetchVersions(ctx, pkg)
	if err != nil {
		return nil, registriesError(l.ecosystem, pkg, err)
	}

	seen := make(map[string]bool, len(versions))
	result := make([]string, 0, len(versions))
	for _, v := range versions {
		number := v.Number
		// RubyGems reports each platform build as "<version>-<platform>".
		if platform, _ := v.Metadata["platform"].(string); platform != "" && platform != "ruby" {
			number = strings.TrimSuffix(number, "-"+platform)
		}
		if seen[number] {
			continue
		}
		seen[number] = true
		result = append(result, number)
	}
	return result, nil
}

// registriesError maps registries client errors to the boundary error kinds.
func registriesError(ecosystem, pkg string, err error) error {
	var notFound *registries.NotFoundError
	if errors.As(err, &notFound) {
		return &EnumerateError{Ecosystem: ecosystem, Package: pkg}
	}
	var httpErr *registries.HTTPError
	if errors.As(err, &httpErr) {
		return registryError(ecosystem, pkg, &RequestError{
			URL:        httpErr.URL,
			StatusCode: httpErr.StatusCode,
			Body:       httpErr.Body,
		})
	}
	return fmt.Errorf("failed to get %s versions for %s: %w", ecosystem, pkg, err)
}
