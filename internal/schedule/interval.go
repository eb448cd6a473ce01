package schedule

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. A booking that ends exactly when another
// begins does not overlap it.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Contains reports whether [innerStart, innerEnd) lies entirely within
// [outerStart, outerEnd).
func Contains(outerStart, outerEnd, innerStart, innerEnd time.Time) bool {
	return !innerStart.Before(outerStart) && !innerEnd.After(outerEnd)
}

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the interval carries no duration.
func (iv Interval) IsZero() bool {
	return !iv.End.After(iv.Start)
}

// Overlaps reports whether iv intersects other.
func (iv Interval) Overlaps(other Interval) bool {
	return Overlaps(iv.Start, iv.End, other.Start, other.End)
}

// Clip returns iv restricted to the optional bounds. A zero notBefore or
// notAfter leaves the corresponding edge untouched. The result may be
// empty; callers should check IsZero.
func (iv Interval) Clip(notBefore, notAfter time.Time) Interval {
	out := iv
	if !notBefore.IsZero() && out.Start.Before(notBefore) {
		out.Start = notBefore
	}
	if !notAfter.IsZero() && out.End.After(notAfter) {
		out.End = notAfter
	}
	return out
}
