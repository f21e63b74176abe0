/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package change

import (
	"math"
	"sort"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Ordering compares two versions and returns a negative number when a sorts before b,
// a positive number when a sorts after b and zero when they are equivalent.
type Ordering func(a, b string) int

// VersionValue converts a version into a single number: the segment v_i at position i
// contributes v_i / 10^i. For example "1.1.0" becomes 1.1 and "1.1.1" becomes 1.11.
//
// The encoding is not monotonic for segments greater than 9: "1.11.0" sorts after "2.0.0".
// It is kept for compatibility with existing change sets. Use SemanticOrdering when that matters.
func VersionValue(version string) float64 {
	var value float64
	for i, seg := range strings.Split(version, ".") {
		v, err := strconv.ParseFloat(seg, 64)
		if err != nil {
			continue
		}
		value += v / math.Pow(10, float64(i))
	}
	return value
}

// DecimalOrdering orders versions by VersionValue. This is the default ordering.
func DecimalOrdering(a, b string) int {
	va, vb := VersionValue(a), VersionValue(b)
	switch {
	case va < vb:
		return -1
	case va > vb:
		return 1
	default:
		return 0
	}
}

// SemanticOrdering compares versions segment by segment as integers.
func SemanticOrdering(a, b string) int {
	va, errA := goversion.NewVersion(a)
	vb, errB := goversion.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// SortChanges sorts changes in place by version using the given ordering.
// Nil ordering means DecimalOrdering. The sort is stable.
func SortChanges(changes []*Change, ordering Ordering) {
	if ordering == nil {
		ordering = DecimalOrdering
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return ordering(changes[i].Version(), changes[j].Version()) < 0
	})
}
