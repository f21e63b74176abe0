/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package carpet

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the library matches exactly one of them via errors.Is.
var (
	// ErrParse is returned when a change set cannot be resolved: malformed document,
	// missing source, missing or empty referenced file, invalid version string.
	// It is always raised before any database mutation.
	ErrParse = errors.New("change set parse error")

	// ErrDatabase is returned for any failure reported by the database connector.
	// The underlying driver error is wrapped and reachable via errors.Is/errors.As.
	ErrDatabase = errors.New("change set database error")

	// ErrDrift is returned when the stored content hash of an applied task differs from
	// the hash of its current content.
	ErrDrift = errors.New("change set drift detected")
)

// ParseErrorf returns a new parse-class error.
func ParseErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// WrapParseError wraps cause as a parse-class error.
func WrapParseError(cause error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %w", ErrParse, fmt.Sprintf(format, args...), cause)
}

// WrapDatabaseError wraps cause as a database-class error.
// Errors that are already drift-class are not reclassified.
func WrapDatabaseError(cause error, format string, args ...interface{}) error {
	if errors.Is(cause, ErrDrift) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), cause)
	}
	return fmt.Errorf("%w: %s: %w", ErrDatabase, fmt.Sprintf(format, args...), cause)
}

// DatabaseErrorf returns a new database-class error without an underlying cause.
func DatabaseErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDatabase, fmt.Sprintf(format, args...))
}

// DriftErrorf returns a new drift-class error.
func DriftErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDrift, fmt.Sprintf(format, args...))
}
