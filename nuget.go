package affected

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NuGet orders NuGet versions: up to four numeric parts, then a SemVer 2
// pre-release label compared case-insensitively. Build metadata is ignored.
type NuGet struct {
	source versionLister
}

func (n *NuGet) Name() string {
	return EcosystemNuGet
}

func (n *NuGet) IsSemver() bool {
	return false
}

type nugetKey struct {
	release [4]uint64
	// pre is nil for stable releases. It carries only the pre-release label
	// on a 0.0.0 core so Masterminds applies SemVer label precedence.
	pre *semver.Version
}

func (k nugetKey) Compare(other SortKey) int {
	o, ok := other.(nugetKey)
	if !ok {
		return compareForeign(k, other)
	}
	for i := range k.release {
		switch {
		case k.release[i] < o.release[i]:
			return -1
		case k.release[i] > o.release[i]:
			return 1
		}
	}
	switch {
	case k.pre == nil && o.pre == nil:
		return 0
	case k.pre == nil:
		return 1
	case o.pre == nil:
		return -1
	}
	return k.pre.Compare(o.pre)
}

func (n *NuGet) SortKey(version string) SortKey {
	key, err := parseNuGetVersion(version)
	if err != nil {
		return invalidKey{raw: version}
	}
	return key
}

func parseNuGetVersion(version string) (nugetKey, error) {
	var key nugetKey

	core, _, _ := strings.Cut(version, "+")
	core, label, hasLabel := strings.Cut(core, "-")

	parts := strings.Split(core, ".")
	if len(parts) > len(key.release) {
		return key, fmt.Errorf("too many version parts in %q", version)
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return key, fmt.Errorf("invalid version part %q in %q", p, version)
		}
		key.release[i] = n
	}

	if hasLabel {
		pre, err := semver.NewVersion("0.0.0-" + strings.ToLower(label))
		if err != nil {
			return key, fmt.Errorf("invalid pre-release label in %q: %w", version, err)
		}
		key.pre = pre
	}
	return key, nil
}

func (n *NuGet) EnumerateVersions(ctx context.Context, pkg, introduced, fixed string, limits []string) ([]string, error) {
	versions, err := n.source.ListVersions(ctx, pkg)
	if err != nil {
		return nil, err
	}
	SortVersions(n, versions)
	return getAffectedVersions(n, versions, introduced, fixed, limits), nil
}

func (n *NuGet) NextVersion(ctx context.Context, pkg, version string) (string, error) {
	return nextVersion(ctx, n, pkg, version)
}

// nugetRegistry lists versions from the NuGet registration (catalog) index.
type nugetRegistry struct {
	req     *requestHelper
	baseURL string
}

type nugetIndex struct {
	Items []nugetPage `json:"items"`
}

type nugetPage struct {
	ID string `json:"@id"`
	// Items is nil when the page must be fetched separately from ID.
	Items []nugetLeaf `json:"items"`
}

type nugetLeaf struct {
	CatalogEntry struct {
		Version string `json:"version"`
	} `json:"catalogEntry"`
}

func (r *nugetRegistry) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	u := fmt.Sprintf("%s/v3/registration5-semver1/%s/index.json", r.baseURL, url.PathEscape(strings.ToLower(pkg)))
	body, err := r.req.get(ctx, u, nil)
	if err != nil {
		return nil, registryError(EcosystemNuGet, pkg, err)
	}

	var index nugetIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("decoding NuGet index for %s: %w", pkg, err)
	}

	var versions []string
	for _, page := range index.Items {
		items := page.Items
		if items == nil {
			items, err = r.fetchPage(ctx, pkg, page.ID)
			if err != nil {
				return nil, err
			}
		}
		for _, item := range items {
			versions = append(versions, item.CatalogEntry.Version)
		}
	}
	return versions, nil
}

func (r *nugetRegistry) fetchPage(ctx context.Context, pkg, pageURL string) ([]nugetLeaf, error) {
	body, err := r.req.get(ctx, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get NuGet versions page for %s: %w", pkg, err)
	}

	var page nugetPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding NuGet page for %s: %w", pkg, err)
	}
	return page.Items, nil
}
