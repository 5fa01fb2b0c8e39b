package affected

import (
	"slices"
	"strings"

	"github.com/git-pkgs/vers"
)

// SortVersions returns versions sorted in the named ecosystem's order. For
// unsupported ecosystems it falls back to generic version comparison.
func (r *Registry) SortVersions(ecosystem string, versions []string) []string {
	sorted := slices.Clone(versions)
	if e := r.Get(ecosystem); e != nil {
		SortVersions(e, sorted)
		return sorted
	}
	slices.SortStableFunc(sorted, vers.Compare)
	return sorted
}

// GroupVersions sorts versions and groups them by major component, e.g.
// "1.*". Versions without a dot go under "Other". Groups keep sort order.
func (r *Registry) GroupVersions(ecosystem string, versions []string) map[string][]string {
	groups := make(map[string][]string)
	for _, v := range r.SortVersions(ecosystem, versions) {
		major, _, ok := strings.Cut(v, ".")
		label := major + ".*"
		if !ok {
			label = "Other"
		}
		groups[label] = append(groups[label], v)
	}
	return groups
}
