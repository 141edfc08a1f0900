package clientdata

import "time"

// TTL constants for price series.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLOpenRange applies to ranges that include recent sessions; new closes may still arrive.
	TTLOpenRange = 12 * time.Hour
	// TTLClosedRange applies to ranges that ended well in the past; those closes no longer change.
	TTLClosedRange = 30 * 24 * time.Hour

	// settlementLag is how far back a range end must be before it is considered closed.
	settlementLag = 72 * time.Hour
)

// TTLFor returns the cache lifetime for a series ending at end.
// openTTL overrides TTLOpenRange when positive.
func TTLFor(end, now time.Time, openTTL time.Duration) time.Duration {
	if openTTL <= 0 {
		openTTL = TTLOpenRange
	}
	if now.Sub(end) > settlementLag {
		return TTLClosedRange
	}
	return openTTL
}
