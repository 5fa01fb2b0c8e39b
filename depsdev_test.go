package affected

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepsDevGetVersions(t *testing.T) {
	r, srv := newTestRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/insights/v1alpha/systems/PYPI/packages/requests/versions", req.URL.Path)
		assert.Equal(t, "key-123", req.Header.Get(depsDevAPIKeyHeader))
		assert.Equal(t, "affected-test", req.Header.Get("User-Agent"))
		writeJSON(t, w, map[string]any{
			"versions": []map[string]any{
				{"version": "2.31.0"},
				{"version": "2.0.0"},
			},
		})
	}), WithDepsDev("key-123"), WithUserAgent("affected-test"))

	client := newDepsDevClient(srv.URL, "key-123", r.req)
	versions, err := client.GetVersions(context.Background(), EcosystemPyPI, "requests")
	require.NoError(t, err)
	assert.Equal(t, []string{"2.31.0", "2.0.0"}, versions)

	// The registry routes PyPI through deps.dev as well.
	got, err := r.Get(EcosystemPyPI).EnumerateVersions(context.Background(), "requests", "0", "2.31.0", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0.0"}, got)
}

func TestDepsDevNotFound(t *testing.T) {
	r, _ := newTestRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	}), WithDepsDev(""))

	_, err := r.Get(EcosystemPyPI).EnumerateVersions(context.Background(), "no-such-package", "0", "", nil)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDepsDevUnsupportedEcosystem(t *testing.T) {
	client := newDepsDevClient("http://127.0.0.1:0", "", nil)

	_, err := client.GetVersions(context.Background(), EcosystemNuGet, "pkg")

	assert.Error(t, err)
}
