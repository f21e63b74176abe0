/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package connector

import (
	"crypto/md5" // nolint: gosec // used as content fingerprint, not for security
	"math/big"
)

// ContentHash returns the hash stored for task content: MD5 in lowercase hex without leading zeros.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content)) // nolint: gosec
	return new(big.Int).SetBytes(sum[:]).Text(16)
}
