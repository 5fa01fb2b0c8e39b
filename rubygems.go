package affected

import (
	"context"

	gem "github.com/aquasecurity/go-gem-version"
)

// RubyGems orders versions like Gem::Version.
type RubyGems struct {
	source versionLister
}

func (g *RubyGems) Name() string {
	return EcosystemRubyGems
}

func (g *RubyGems) IsSemver() bool {
	return false
}

type gemKey struct {
	v gem.Version
}

func (k gemKey) Compare(other SortKey) int {
	o, ok := other.(gemKey)
	if !ok {
		return compareForeign(k, other)
	}
	return k.v.Compare(o.v)
}

func (g *RubyGems) SortKey(version string) SortKey {
	v, err := gem.NewVersion(version)
	if err != nil {
		return invalidKey{raw: version}
	}
	return gemKey{v: v}
}

func (g *RubyGems) EnumerateVersions(ctx context.Context, pkg, introduced, fixed string, limits []string) ([]string, error) {
	versions, err := g.source.ListVersions(ctx, pkg)
	if err != nil {
		return nil, err
	}
	SortVersions(g, versions)
	return getAffectedVersions(g, versions, introduced, fixed, limits), nil
}

func (g *RubyGems) NextVersion(ctx context.Context, pkg, version string) (string, error) {
	return nextVersion(ctx, g, pkg, version)
}
