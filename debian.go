package affected

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	debversion "github.com/knqyf263/go-deb-version"
	"go.uber.org/zap"
)

// debianSentinel is the key of every invalid Debian version, so that a
// total order exists even when one slips through (usually a fixed version).
var debianSentinel = func() debversion.Version {
	v, err := debversion.NewVersion("999999:999999")
	if err != nil {
		panic(err)
	}
	return v
}()

// Debian orders dpkg versions for a single release, such as "Debian:11".
type Debian struct {
	release       string
	source        versionLister
	firstVersions FirstVersionResolver
	logger        *zap.Logger
}

func (d *Debian) Name() string {
	return EcosystemDebian
}

// Release returns the release qualifier the ecosystem is scoped to.
func (d *Debian) Release() string {
	return d.release
}

func (d *Debian) IsSemver() bool {
	return false
}

type debianKey struct {
	v debversion.Version
}

func (k debianKey) Compare(other SortKey) int {
	o, ok := other.(debianKey)
	if !ok {
		return compareForeign(k, other)
	}
	return k.v.Compare(o.v)
}

func (d *Debian) SortKey(version string) SortKey {
	v, err := debversion.NewVersion(version)
	if err != nil {
		return debianKey{v: debianSentinel}
	}
	return debianKey{v: v}
}

// EnumerateVersions slices the package's snapshot history, restricted to
// versions without a "+deb<N>" suffix or with this release's suffix. An
// invalid fixed version yields no affected versions rather than a guess.
func (d *Debian) EnumerateVersions(ctx context.Context, pkg, introduced, fixed string, limits []string) ([]string, error) {
	raw, err := d.source.ListVersions(ctx, pkg)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(raw))
	for _, v := range raw {
		if !debversion.Valid(v) {
			d.logger.Warn("dropping invalid Debian version",
				zap.String("package", pkg), zap.String("version", v))
			continue
		}
		versions = append(versions, v)
	}
	SortVersions(d, versions)

	scoped := versions[:0]
	for _, v := range versions {
		if belongsToRelease(v, d.release) {
			scoped = append(scoped, v)
		}
	}

	if introduced == "0" && d.firstVersions != nil {
		introduced, err = d.firstVersions.FirstVersion(ctx, pkg, d.release)
		if err != nil {
			return nil, fmt.Errorf("resolving first %s version of %s in release %s: %w",
				EcosystemDebian, pkg, d.release, err)
		}
	}

	if fixed != "" && !debversion.Valid(fixed) {
		d.logger.Warn("invalid Debian fixed version, reporting no affected versions",
			zap.String("package", pkg), zap.String("fixed", fixed), zap.String("release", d.release))
		return []string{}, nil
	}

	return getAffectedVersions(d, scoped, introduced, fixed, limits), nil
}

func (d *Debian) NextVersion(ctx context.Context, pkg, version string) (string, error) {
	return nextVersion(ctx, d, pkg, version)
}

// belongsToRelease reports whether version has no "+deb<N>" suffix, or has
// the one of release. "+deb1" does not match "+deb11u2".
func belongsToRelease(version, release string) bool {
	if !strings.Contains(version, "+deb") {
		return true
	}
	marker := "+deb" + release
	for rest := version; ; {
		i := strings.Index(rest, marker)
		if i < 0 {
			return false
		}
		rest = rest[i+len(marker):]
		if rest == "" || rest[0] < '0' || rest[0] > '9' {
			return true
		}
	}
}

// debianSnapshot lists the version history of a source package from
// snapshot.debian.org. Responses go through the shared cache.
type debianSnapshot struct {
	req     *requestHelper
	baseURL string
}

type debianSnapshotResponse struct {
	Result []struct {
		Version string `json:"version"`
	} `json:"result"`
}

func (s *debianSnapshot) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	u := fmt.Sprintf("%s/mr/package/%s/", s.baseURL, url.PathEscape(strings.ToLower(pkg)))
	body, err := s.req.getCached(ctx, u)
	if err != nil {
		return nil, registryError(EcosystemDebian, pkg, err)
	}

	var resp debianSnapshotResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding Debian snapshot response for %s: %w", pkg, err)
	}

	versions := make([]string, 0, len(resp.Result))
	for _, r := range resp.Result {
		versions = append(versions, r.Version)
	}
	return versions, nil
}
