// Package affected resolves the concrete versions of a package that fall
// inside a vulnerable range, across package ecosystems (semver-family,
// PyPI, Maven, RubyGems, NuGet, Debian).
//
// Each ecosystem pairs a version ordering with a source of the package's
// complete version list (the registry API, or deps.dev). The full list is
// fetched, re-sorted, and sliced by (introduced, fixed, limits).
package affected

import (
	"context"
)

// Ecosystem orders and enumerates versions for one package ecosystem.
type Ecosystem interface {
	// Name returns the ecosystem family name, e.g. "PyPI" or "Debian".
	Name() string

	// SortKey maps a version string to a comparable key. Malformed input
	// never panics; it yields a key that sorts after every valid version.
	SortKey(version string) SortKey

	// EnumerateVersions returns the package versions in [introduced, fixed)
	// that sort before every limit, in ascending order.
	// introduced "0" means no lower bound, an empty fixed means no upper
	// bound, and a limit of "*" disables limit filtering.
	EnumerateVersions(ctx context.Context, pkg, introduced, fixed string, limits []string) ([]string, error)

	// NextVersion returns the first version that sorts strictly after
	// version, or "" when there is none.
	NextVersion(ctx context.Context, pkg, version string) (string, error)

	// IsSemver reports whether the ecosystem uses semantic versioning.
	IsSemver() bool
}

// SortKey is an ecosystem-specific ordered representation of a version.
// Keys are only comparable with keys produced by the same ecosystem.
type SortKey interface {
	Compare(other SortKey) int
}

// versionLister fetches the complete, unordered version list of a package.
type versionLister interface {
	ListVersions(ctx context.Context, pkg string) ([]string, error)
}
