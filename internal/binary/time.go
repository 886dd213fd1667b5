package binary

import "time"

// macEpochOffset is the number of seconds between 1904-01-01 and 1970-01-01.
const macEpochOffset = 2082844800

// MacTime converts a classic Mac OS timestamp (seconds since 1904, local
// time of the writing machine) to a time.Time in UTC. Zero means "never"
// and maps to the zero time.
func MacTime(secs uint32) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs)-macEpochOffset, 0).UTC()
}

// ToMacTime is the inverse of MacTime. Times outside the representable
// range clamp to its bounds.
func ToMacTime(t time.Time) uint32 {
	if t.IsZero() {
		return 0
	}
	secs := t.Unix() + macEpochOffset
	switch {
	case secs < 0:
		return 0
	case secs > 0xFFFFFFFF:
		return 0xFFFFFFFF
	}
	return uint32(secs)
}
