package affected

import (
	"context"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// PyPI orders versions per PEP 440.
type PyPI struct {
	source versionLister
}

func (p *PyPI) Name() string {
	return EcosystemPyPI
}

func (p *PyPI) IsSemver() bool {
	return false
}

type pep440Key struct {
	v pep440.Version
}

func (k pep440Key) Compare(other SortKey) int {
	o, ok := other.(pep440Key)
	if !ok {
		return compareForeign(k, other)
	}
	return k.v.Compare(o.v)
}

func (p *PyPI) SortKey(version string) SortKey {
	v, err := pep440.Parse(version)
	if err != nil {
		return invalidKey{raw: version}
	}
	return pep440Key{v: v}
}

func (p *PyPI) EnumerateVersions(ctx context.Context, pkg, introduced, fixed string, limits []string) ([]string, error) {
	versions, err := p.source.ListVersions(ctx, pkg)
	if err != nil {
		return nil, err
	}
	SortVersions(p, versions)
	return getAffectedVersions(p, versions, introduced, fixed, limits), nil
}

func (p *PyPI) NextVersion(ctx context.Context, pkg, version string) (string, error) {
	return nextVersion(ctx, p, pkg, version)
}
