package affected

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	mvnversion "github.com/masahiro331/go-mvn-version"
	"go.uber.org/zap"

	"github.com/git-pkgs/affected/cache"
)

const mavenSearchRows = 20

// Maven orders versions like Maven's ComparableVersion. Packages are named
// "groupId:artifactId".
type Maven struct {
	source versionLister
}

func (m *Maven) Name() string {
	return EcosystemMaven
}

func (m *Maven) IsSemver() bool {
	return false
}

type mavenKey struct {
	v mvnversion.Version
}

func (k mavenKey) Compare(other SortKey) int {
	o, ok := other.(mavenKey)
	if !ok {
		return compareForeign(k, other)
	}
	return k.v.Compare(o.v)
}

func (m *Maven) SortKey(version string) SortKey {
	v, err := mvnversion.NewVersion(version)
	if err != nil {
		return invalidKey{raw: version}
	}
	return mavenKey{v: v}
}

func (m *Maven) EnumerateVersions(ctx context.Context, pkg, introduced, fixed string, limits []string) ([]string, error) {
	versions, err := m.source.ListVersions(ctx, pkg)
	if err != nil {
		return nil, err
	}
	SortVersions(m, versions)
	return getAffectedVersions(m, versions, introduced, fixed, limits), nil
}

func (m *Maven) NextVersion(ctx context.Context, pkg, version string) (string, error) {
	return nextVersion(ctx, m, pkg, version)
}

// mavenSearch pages through the Maven Central search API.
type mavenSearch struct {
	req     *requestHelper
	baseURL string
}

type mavenSearchResponse struct {
	Response struct {
		NumFound int `json:"numFound"`
		Docs     []struct {
			V string `json:"v"`
		} `json:"docs"`
	} `json:"response"`
}

func (s *mavenSearch) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	groupID, artifactID, ok := strings.Cut(pkg, ":")
	if !ok || groupID == "" || artifactID == "" {
		return nil, &EnumerateError{Ecosystem: EcosystemMaven, Package: pkg}
	}

	var versions []string
	for {
		query := url.Values{
			"q":     {fmt.Sprintf(`g:"%s" AND a:"%s"`, groupID, artifactID)},
			"core":  {"gav"},
			"rows":  {strconv.Itoa(mavenSearchRows)},
			"wt":    {"json"},
			"start": {strconv.Itoa(len(versions))},
		}
		body, err := s.req.get(ctx, s.baseURL+"/solrsearch/select?"+query.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get Maven versions for %s: %w", pkg, err)
		}

		var resp mavenSearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding Maven search response for %s: %w", pkg, err)
		}
		if resp.Response.NumFound == 0 {
			return nil, &EnumerateError{Ecosystem: EcosystemMaven, Package: pkg}
		}

		for _, doc := range resp.Response.Docs {
			versions = append(versions, doc.V)
		}
		if len(versions) >= resp.Response.NumFound {
			return versions, nil
		}
		if len(resp.Response.Docs) == 0 {
			return nil, fmt.Errorf("maven search for %s returned an empty page at %d of %d",
				pkg, len(versions), resp.Response.NumFound)
		}
	}
}

// cachedSource memoises a version list in the shared cache under
// (family, package).
type cachedSource struct {
	family string
	inner  versionLister
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func (s *cachedSource) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	return cache.Fetch(ctx, s.cache, s.logger, cache.Key(s.family, pkg), s.ttl,
		func(ctx context.Context) ([]string, error) {
			return s.inner.ListVersions(ctx, pkg)
		})
}
