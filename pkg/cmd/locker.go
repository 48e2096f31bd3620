package cmd

import (
	"time"

	"github.com/flowzen/flowzen/pkg/locker"
)

// NewLocker returns a Redis locker when redisURL is set, otherwise a
// process-local one. close is never nil.
func NewLocker(redisURL string, ttl time.Duration) (l locker.Locker, closeFn func() error, err error) {
	if redisURL == "" {
		return locker.NewMemory(), func() error { return nil }, nil
	}

	redisLocker, err := locker.NewRedisFromURL(redisURL, ttl)
	if err != nil {
		return nil, nil, err
	}

	return redisLocker, redisLocker.Close, nil
}
