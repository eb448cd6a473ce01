package schedule

import "time"

const (
	// DefaultMaxOccurrences bounds a series whose rule names neither an
	// end date nor an occurrence count.
	DefaultMaxOccurrences = 12

	// maxRecurrenceIterations bounds the candidate walk independently of
	// how many occurrences it yields. A days-of-week filter that never
	// matches the cadence would otherwise loop until the date bound.
	maxRecurrenceIterations = 366
)

// Validate rejects malformed recurrence rules before expansion.
func (r *RecurrenceRule) Validate() error {
	switch r.Type {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly, RecurrenceQuarterly:
	default:
		return &ValidationError{Field: "recurrence_type", Detail: "unknown recurrence type " + string(r.Type)}
	}
	if r.Interval < 0 {
		return &ValidationError{Field: "recurrence_interval", Detail: "must not be negative"}
	}
	if r.MaxOccurrences != nil && *r.MaxOccurrences <= 0 {
		return &ValidationError{Field: "max_occurrences", Detail: "must be positive"}
	}
	return nil
}

// ExpandRecurrence produces the future occurrence instants that follow
// anchor under the rule, each keeping the anchor's wall-clock time of
// day. The anchor itself is not part of the result. Expansion stops at
// the rule's end date, its occurrence cap (DefaultMaxOccurrences when
// unset), or the hard iteration bound, whichever comes first.
func ExpandRecurrence(anchor time.Time, rule RecurrenceRule) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	maxOccurrences := DefaultMaxOccurrences
	if rule.MaxOccurrences != nil {
		maxOccurrences = *rule.MaxOccurrences
	}

	var out []time.Time
	current := anchor
	for i := 0; i < maxRecurrenceIterations && len(out) < maxOccurrences; i++ {
		current = advance(current, rule.Type, interval)
		if rule.EndDate != nil && current.After(endOfDay(*rule.EndDate)) {
			break
		}
		if !weekdayAllowed(current.Weekday(), rule.DaysOfWeek) {
			continue
		}
		out = append(out, current)
	}
	return out, nil
}

func advance(t time.Time, typ RecurrenceType, interval int) time.Time {
	switch typ {
	case RecurrenceDaily:
		return t.AddDate(0, 0, interval)
	case RecurrenceWeekly:
		return t.AddDate(0, 0, 7*interval)
	case RecurrenceBiweekly:
		return t.AddDate(0, 0, 14)
	case RecurrenceMonthly:
		return t.AddDate(0, interval, 0)
	case RecurrenceQuarterly:
		return t.AddDate(0, 3, 0)
	}
	return t
}

func endOfDay(t time.Time) time.Time {
	return truncateToDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
