package affected

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRegistry points every upstream at a single fake server.
func newTestRegistry(t *testing.T, handler http.Handler, opts ...Option) (*Registry, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	// No recorded first versions, so Debian's introduced "0" stays "0".
	firstVersions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(firstVersions.Close)

	base := []Option{
		WithHTTPClient(srv.Client()),
		WithEndpoints(Endpoints{
			PyPI:     srv.URL,
			Maven:    srv.URL,
			RubyGems: srv.URL,
			NuGet:    srv.URL,
			Debian:   srv.URL,
			DepsDev:  srv.URL,

			DebianFirstVersions: firstVersions.URL,
		}),
	}
	r, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return r, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

// staticSource is a versionLister returning fixed results.
type staticSource struct {
	versions []string
	err      error
	calls    int
}

func (s *staticSource) ListVersions(_ context.Context, _ string) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.versions...), nil
}
