/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package change

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionValue(t *testing.T) {
	tests := []struct {
		version string
		want    float64
	}{
		{"1.0.0", 1},
		{"1.1.0", 1.1},
		{"1.1.1", 1.11},
		{"1.1.10", 1.2},
		{"1.10.0", 2},
		{"2.5", 2.5},
		{"0.0.1", 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			require.InDelta(t, tt.want, VersionValue(tt.version), 1e-9)
		})
	}
}

func TestDecimalOrdering(t *testing.T) {
	// 1 + 1/10 + 1/100 = 1.11 and 1 + 1/10 + 10/100 = 1.2
	require.Negative(t, DecimalOrdering("1.1.1", "1.1.10"))
	// 1 + 11/10 = 2.1 is greater than 2.0
	require.Positive(t, DecimalOrdering("1.11.0", "2.0.0"))
	// 1 + 10/10 = 2.0
	require.Zero(t, DecimalOrdering("1.10.0", "2.0.0"))
	require.Negative(t, DecimalOrdering("1.0.0", "1.0.1"))
	require.Zero(t, DecimalOrdering("1.0", "1.0.0"))
}

func TestSemanticOrdering(t *testing.T) {
	require.Negative(t, SemanticOrdering("1.11.0", "2.0.0"))
	require.Negative(t, SemanticOrdering("1.9.0", "1.10.0"))
	require.Positive(t, SemanticOrdering("1.1.10", "1.1.9"))
	require.Zero(t, SemanticOrdering("1.0", "1.0.0"))
}

func TestSortChanges(t *testing.T) {
	newChanges := func(versions ...string) []*Change {
		changes := make([]*Change, 0, len(versions))
		for _, v := range versions {
			c, err := New(v)
			require.NoError(t, err)
			changes = append(changes, c)
		}
		return changes
	}
	versionsOf := func(changes []*Change) []string {
		versions := make([]string, 0, len(changes))
		for _, c := range changes {
			versions = append(versions, c.Version())
		}
		return versions
	}

	changes := newChanges("2.0.0", "1.11.0", "1.0.1", "1.0.0")
	SortChanges(changes, nil)
	require.Equal(t, []string{"1.0.0", "1.0.1", "2.0.0", "1.11.0"}, versionsOf(changes))

	changes = newChanges("2.0.0", "1.11.0", "1.0.1", "1.0.0")
	SortChanges(changes, SemanticOrdering)
	require.Equal(t, []string{"1.0.0", "1.0.1", "1.11.0", "2.0.0"}, versionsOf(changes))
}
