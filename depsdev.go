package affected

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const depsDevAPIKeyHeader = "X-DepsDev-APIKey"

// depsDevEnumerable lists the ecosystems whose versions may be listed
// through deps.dev instead of their registry.
var depsDevEnumerable = map[string]bool{
	EcosystemMaven: true,
	EcosystemPyPI:  true,
}

// DepsDevClient lists package versions through the deps.dev insights API.
type DepsDevClient struct {
	baseURL string
	apiKey  string
	req     *requestHelper
}

func newDepsDevClient(baseURL, apiKey string, req *requestHelper) *DepsDevClient {
	return &DepsDevClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		req:     req,
	}
}

// source returns a versionLister bound to ecosystem.
func (c *DepsDevClient) source(ecosystem string) versionLister {
	return &depsDevSource{client: c, ecosystem: ecosystem}
}

type depsdevVersionsResponse struct {
	Versions []struct {
		Version string `json:"version"`
	} `json:"versions"`
}

// GetVersions returns every version deps.dev knows for pkg.
func (c *DepsDevClient) GetVersions(ctx context.Context, ecosystem, pkg string) ([]string, error) {
	if !depsDevEnumerable[ecosystem] {
		return nil, fmt.Errorf("deps.dev: unsupported ecosystem %s", ecosystem)
	}
	system := DepsDevSystem(ecosystem)
	if system == "" {
		return nil, fmt.Errorf("deps.dev: no system for ecosystem %s", ecosystem)
	}

	u := fmt.Sprintf("%s/insights/v1alpha/systems/%s/packages/%s/versions",
		c.baseURL, strings.ToUpper(system), url.PathEscape(pkg))
	header := http.Header{}
	header.Set(depsDevAPIKeyHeader, c.apiKey)

	body, err := c.req.get(ctx, u, header)
	if err != nil {
		return nil, registryError(ecosystem, pkg, err)
	}

	var resp depsdevVersionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding deps.dev response for %s: %w", pkg, err)
	}

	versions := make([]string, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		versions = append(versions, v.Version)
	}
	return versions, nil
}

type depsDevSource struct {
	client    *DepsDevClient
	ecosystem string
}

func (s *depsDevSource) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	return s.client.GetVersions(ctx, s.ecosystem, pkg)
}
