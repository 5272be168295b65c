package cache

import "time"

// IsFresh reports whether a record refreshed at lastUpdated is still
// inside the ttl window at the given instant. Records never expire out
// of the store; they only stop being served without a refresh.
func IsFresh(lastUpdated time.Time, ttl time.Duration, now time.Time) bool {
	return now.Sub(lastUpdated) < ttl
}
