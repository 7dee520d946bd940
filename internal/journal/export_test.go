package journal

import "time"

// SetTimeNow replaces the package clock until the returned func is called.
func SetTimeNow(f func() time.Time) (restore func()) {
	prev := timeNow
	timeNow = f
	return func() { timeNow = prev }
}

// CacheKey exposes cacheKey to the external test package.
var CacheKey = cacheKey
