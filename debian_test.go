package affected

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/affected/cache"
)

var opensslHistory = []string{
	"1.1.1n-0+deb11u4",
	"1.1.1n-0+deb10u3",
	"3.0.11-1~deb12u2",
	"1.1.1k-1",
	"not a version!",
	"1.1.1n-0",
	"3.0.13-1",
	"1.1.1w-0+deb11u1",
}

func debianHandler(t *testing.T, requests *int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		*requests++
		if req.URL.Path != "/mr/package/openssl/" {
			t.Errorf("unexpected path: %s", req.URL.Path)
			http.NotFound(w, req)
			return
		}
		result := make([]map[string]any, 0, len(opensslHistory))
		for _, v := range opensslHistory {
			result = append(result, map[string]any{"version": v})
		}
		writeJSON(t, w, map[string]any{"package": "openssl", "result": result})
	}
}

type stubFirstVersions struct {
	version string
	err     error
	calls   int
}

func (s *stubFirstVersions) FirstVersion(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.version, s.err
}

func TestDebianReleaseScoping(t *testing.T) {
	var requests int
	r, _ := newTestRegistry(t, debianHandler(t, &requests))
	ctx := context.Background()

	bullseye, err := r.Get("Debian:11").EnumerateVersions(ctx, "openssl", "0", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1.1.1k-1",
		"1.1.1n-0",
		"1.1.1n-0+deb11u4",
		"1.1.1w-0+deb11u1",
		"3.0.11-1~deb12u2",
		"3.0.13-1",
	}, bullseye)

	buster, err := r.Get("Debian:10").EnumerateVersions(ctx, "openssl", "1.1.1n-0", "1.1.1w-0", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1n-0", "1.1.1n-0+deb10u3"}, buster)
}

func TestDebianInvalidFixedYieldsNothing(t *testing.T) {
	var requests int
	r, _ := newTestRegistry(t, debianHandler(t, &requests))

	got, err := r.Get("Debian:11").EnumerateVersions(context.Background(), "openssl", "0", "not valid!", nil)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDebianIntroducedZeroUsesFirstVersion(t *testing.T) {
	var requests int
	first := &stubFirstVersions{version: "1.1.1n-0"}
	r, _ := newTestRegistry(t, debianHandler(t, &requests), WithFirstVersions(first))

	got, err := r.Get("Debian:11").EnumerateVersions(context.Background(), "openssl", "0", "1.1.1w-0+deb11u1", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1n-0", "1.1.1n-0+deb11u4"}, got)
	assert.Equal(t, 1, first.calls)
}

func TestDebianFirstVersionFailure(t *testing.T) {
	var requests int
	first := &stubFirstVersions{err: errors.New("connection reset")}
	r, _ := newTestRegistry(t, debianHandler(t, &requests), WithFirstVersions(first))

	_, err := r.Get("Debian:11").EnumerateVersions(context.Background(), "openssl", "0", "", nil)

	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestDebianNextVersion(t *testing.T) {
	var requests int
	r, _ := newTestRegistry(t, debianHandler(t, &requests))
	bookworm := r.Get("Debian:12")

	next, err := bookworm.NextVersion(context.Background(), "openssl", "1.1.1n-0")
	require.NoError(t, err)
	assert.Equal(t, "3.0.11-1~deb12u2", next)

	last, err := bookworm.NextVersion(context.Background(), "openssl", "3.0.13-1")
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestDebianSnapshotCached(t *testing.T) {
	var requests int
	r, _ := newTestRegistry(t, debianHandler(t, &requests), WithCache(cache.NewMemory()))
	ctx := context.Background()

	_, err := r.Get("Debian:11").EnumerateVersions(ctx, "openssl", "0", "", nil)
	require.NoError(t, err)
	_, err = r.Get("Debian:12").EnumerateVersions(ctx, "OpenSSL", "0", "", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
}

func TestDebianInvalidVersionsSortLast(t *testing.T) {
	d := &Debian{release: "12"}

	assert.Positive(t, d.SortKey("not a version!").Compare(d.SortKey("99:1.0-1")))
	assert.Zero(t, d.SortKey("junk!").Compare(d.SortKey("also junk!")))
	assert.Negative(t, d.SortKey("1.0~rc1-1").Compare(d.SortKey("1.0-1")))
}

func TestBelongsToRelease(t *testing.T) {
	tests := []struct {
		version string
		release string
		want    bool
	}{
		{"1.0-1", "11", true},
		{"1.0-1+deb11u2", "11", true},
		{"1.0-1+deb11u2", "1", false},
		{"1.0-1+deb12u1", "11", false},
		{"2.0+deb11", "11", true},
		{"1.0-1~deb12u1", "11", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, belongsToRelease(tt.version, tt.release), "%s in %s", tt.version, tt.release)
	}
}

func TestDebianDefaultFirstVersions(t *testing.T) {
	var requests int
	snapshot := httptest.NewServer(debianHandler(t, &requests))
	t.Cleanup(snapshot.Close)

	var downloads int
	firstVersions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		downloads++
		writeJSON(t, w, map[string]any{
			"11": map[string]string{"openssl": "1.1.1k-1"},
			"12": map[string]string{"openssl": "3.0.11-1~deb12u2"},
		})
	}))
	t.Cleanup(firstVersions.Close)

	r, err := New(WithEndpoints(Endpoints{
		Debian:              snapshot.URL,
		DebianFirstVersions: firstVersions.URL,
	}))
	require.NoError(t, err)

	got, err := r.Get("Debian:12").EnumerateVersions(context.Background(), "openssl", "0", "3.0.13-1", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"3.0.11-1~deb12u2"}, got)
	assert.Equal(t, 1, downloads)
}
