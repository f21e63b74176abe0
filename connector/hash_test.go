/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package connector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	require.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", ContentHash(""))
	require.Equal(t, "9e107d9d372bb6826bd81d3542a419d6", ContentHash("The quick brown fox jumps over the lazy dog"))
	// MD5 of "a" starts with a zero which is not rendered.
	require.Equal(t, "cc175b9c0f1b6a831c399e269772661", ContentHash("a"))
}
