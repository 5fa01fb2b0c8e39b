package affected

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Semver is a semantic-versioning ecosystem (crates.io, Go, npm). It orders
// versions but does not enumerate them: callers hold the version list and
// slice it with AffectedVersions.
type Semver struct {
	name string
}

// NewSemver creates a semver-family ecosystem with the given name.
func NewSemver(name string) *Semver {
	return &Semver{name: name}
}

func (s *Semver) Name() string {
	return s.name
}

func (s *Semver) IsSemver() bool {
	return true
}

type semverKey struct {
	v *semver.Version
}

func (k semverKey) Compare(other SortKey) int {
	o, ok := other.(semverKey)
	if !ok {
		return compareForeign(k, other)
	}
	return k.v.Compare(o.v)
}

// SortKey parses version leniently ("v1.2", "1.2.3-rc.1+build").
func (s *Semver) SortKey(version string) SortKey {
	v, err := semver.NewVersion(version)
	if err != nil {
		return invalidKey{raw: version}
	}
	return semverKey{v: v}
}

// EnumerateVersions is a no-op for semver ecosystems.
func (s *Semver) EnumerateVersions(context.Context, string, string, string, []string) ([]string, error) {
	return nil, nil
}

// NextVersion returns the smallest version that sorts after version without
// guessing the real next release: "1.0.0" becomes "1.0.1-0", and a
// pre-release such as "1.0.0-rc.1" becomes "1.0.0-rc.1.0".
func (s *Semver) NextVersion(_ context.Context, _, version string) (string, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", fmt.Errorf("%s: invalid version %q: %w", s.name, version, err)
	}
	if v.Prerelease() != "" {
		// Build metadata does not take part in ordering.
		base, _, _ := strings.Cut(version, "+")
		return base + ".0", nil
	}
	return v.IncPatch().String() + "-0", nil
}
