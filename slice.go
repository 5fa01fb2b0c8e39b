package affected

import (
	"context"
	"slices"
	"sort"
)

// SortVersions sorts versions in place, ascending by the ecosystem's sort
// key. The sort is stable, so sorting a sorted list leaves it unchanged.
func SortVersions(e Ecosystem, versions []string) {
	type keyed struct {
		version string
		key     SortKey
	}
	items := make([]keyed, len(versions))
	for i, v := range versions {
		items[i] = keyed{version: v, key: e.SortKey(v)}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		return a.key.Compare(b.key)
	})
	for i := range items {
		versions[i] = items[i].version
	}
}

// AffectedVersions re-sorts a copy of versions and returns the subset in
// [introduced, fixed) that sorts before every limit. It is the entry point
// for callers that already hold a package's version list, such as users of
// the semver-family ecosystems whose EnumerateVersions fetches nothing.
func AffectedVersions(e Ecosystem, versions []string, introduced, fixed string, limits []string) []string {
	sorted := slices.Clone(versions)
	SortVersions(e, sorted)
	return getAffectedVersions(e, sorted, introduced, fixed, limits)
}

// getAffectedVersions slices an already sorted version list.
func getAffectedVersions(e Ecosystem, versions []string, introduced, fixed string, limits []string) []string {
	parsed := make([]SortKey, len(versions))
	for i, v := range versions {
		parsed[i] = e.SortKey(v)
	}

	if introduced == "0" {
		introduced = ""
	}

	start := 0
	if introduced != "" {
		start = bisectLeft(parsed, e.SortKey(introduced))
	}

	end := len(versions)
	if fixed != "" {
		end = bisectLeft(parsed, e.SortKey(fixed))
	}

	affected := []string{}
	if end <= start {
		return affected
	}

	bounds := limitKeys(e, limits)
	for i := start; i < end; i++ {
		if beforeLimits(parsed[i], bounds) {
			affected = append(affected, versions[i])
		}
	}
	return affected
}

// bisectLeft returns the leftmost index at which target could be inserted
// into sorted keeping it ordered.
func bisectLeft(sorted []SortKey, target SortKey) int {
	return sort.Search(len(sorted), func(i int) bool {
		return sorted[i].Compare(target) >= 0
	})
}

// limitKeys parses limits. A nil result means no limit filtering applies.
func limitKeys(e Ecosystem, limits []string) []SortKey {
	var keys []SortKey
	for _, limit := range limits {
		switch limit {
		case "*":
			return nil
		case "", "unknown":
			continue
		}
		keys = append(keys, e.SortKey(limit))
	}
	return keys
}

func beforeLimits(key SortKey, limits []SortKey) bool {
	for _, limit := range limits {
		if key.Compare(limit) >= 0 {
			return false
		}
	}
	return true
}

// nextVersion implements NextVersion for ecosystems that can enumerate.
func nextVersion(ctx context.Context, e Ecosystem, pkg, version string) (string, error) {
	versions, err := e.EnumerateVersions(ctx, pkg, version, "", nil)
	if err != nil {
		return "", err
	}
	// An unknown version is not in the list, so the first entry is the
	// first version that sorts after it.
	if len(versions) > 0 && versions[0] != version {
		return versions[0], nil
	}
	if len(versions) > 1 {
		return versions[1], nil
	}
	return "", nil
}
