package affected

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPyPIEnumerateVersions(t *testing.T) {
	r, _ := newTestRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/pypi/requests/json" {
			t.Errorf("unexpected path: %s", req.URL.Path)
			http.NotFound(w, req)
			return
		}
		writeJSON(t, w, map[string]any{
			"releases": map[string]any{
				"2.0.0":   []any{},
				"1.0":     []any{},
				"2.0.0b1": []any{},
				"1.10":    []any{},
				"1.9":     []any{},
			},
		})
	}))

	pypi := r.Get(EcosystemPyPI)
	require.NotNil(t, pypi)

	got, err := pypi.EnumerateVersions(context.Background(), "requests", "1.9", "2.0.0", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.9", "1.10", "2.0.0b1"}, got)

	all, err := pypi.EnumerateVersions(context.Background(), "requests", "0", "", []string{"*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "1.9", "1.10", "2.0.0b1", "2.0.0"}, all)
}

func TestRegistryErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		ecosystem string
		status    int
		notFound  bool
	}{
		{"pypi 404", EcosystemPyPI, http.StatusNotFound, true},
		{"pypi 500", EcosystemPyPI, http.StatusInternalServerError, false},
		{"pypi 403", EcosystemPyPI, http.StatusForbidden, false},
		{"rubygems 404", EcosystemRubyGems, http.StatusNotFound, true},
		{"rubygems 503", EcosystemRubyGems, http.StatusServiceUnavailable, false},
		{"nuget 404", EcosystemNuGet, http.StatusNotFound, true},
		{"nuget 502", EcosystemNuGet, http.StatusBadGateway, false},
		{"debian 404", "Debian:12", http.StatusNotFound, true},
		{"debian 500", "Debian:12", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				http.Error(w, "upstream says no", tt.status)
			}))

			_, err := r.Get(tt.ecosystem).EnumerateVersions(context.Background(), "somepkg", "0", "", nil)
			require.Error(t, err)

			if tt.notFound {
				assert.ErrorIs(t, err, ErrNotFound)
				assert.False(t, IsRetryable(err))
				var enumErr *EnumerateError
				assert.True(t, errors.As(err, &enumErr))
				return
			}

			assert.NotErrorIs(t, err, ErrNotFound)
			assert.True(t, IsRetryable(err))
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Contains(t, reqErr.Body, "upstream says no")
		})
	}
}

func TestPyPIMalformedBodyIsRetryable(t *testing.T) {
	r, _ := newTestRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))

	_, err := r.Get(EcosystemPyPI).EnumerateVersions(context.Background(), "requests", "0", "", nil)

	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestPyPIOrdering(t *testing.T) {
	pypi := &PyPI{}
	ordered := []string{"1.0.dev1", "1.0a1", "1.0b2", "1.0rc1", "1.0", "1.0.post1", "1.1", "1!0.1"}

	for i := 0; i+1 < len(ordered); i++ {
		assert.Negative(t, pypi.SortKey(ordered[i]).Compare(pypi.SortKey(ordered[i+1])),
			"%s < %s", ordered[i], ordered[i+1])
	}
}
