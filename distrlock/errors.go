/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package distrlock

import "errors"

// ErrLockAlreadyAcquired is returned when the lock is held by another owner and is not expired yet.
var ErrLockAlreadyAcquired = errors.New("distributed lock already acquired")

// ErrLockAlreadyReleased is returned when the lock is released or expired.
var ErrLockAlreadyReleased = errors.New("distributed lock already released")
