package affected

import (
	"fmt"
	"strings"
)

// invalidKey is the key of a version the ecosystem cannot parse. It sorts
// after every valid key; invalid keys order among themselves by raw string.
type invalidKey struct {
	raw string
}

func (k invalidKey) Compare(other SortKey) int {
	if o, ok := other.(invalidKey); ok {
		return strings.Compare(k.raw, o.raw)
	}
	return 1
}

// compareForeign handles comparison of key with a key of another type.
func compareForeign(key, other SortKey) int {
	if _, ok := other.(invalidKey); ok {
		return -1
	}
	panic(fmt.Sprintf("affected: cannot compare %T with %T", key, other))
}
