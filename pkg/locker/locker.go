// Package locker provides keyed, non-blocking locks used to serialize saves
// of the same workflow.
package locker

import (
	"context"
	"errors"
	"time"
)

// ErrLocked is returned when the key is already held.
var ErrLocked = errors.New("lock is held")

// DefaultTTL bounds how long a crashed holder can block a key.
const DefaultTTL = 30 * time.Second

// Release frees a lock obtained from TryLock. Releasing twice is a no-op.
type Release func(ctx context.Context) error

type Locker interface {
	// TryLock acquires key without waiting, or fails with ErrLocked.
	TryLock(ctx context.Context, key string) (Release, error)
}
