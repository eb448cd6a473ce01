package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HoursResolver computes the workable sub-intervals of a doctor's
// calendar day. "No availability" is a normal empty result, never an
// error.
type HoursResolver struct {
	calendar CalendarRepository
	loc      *time.Location
}

func NewHoursResolver(calendar CalendarRepository, loc *time.Location) *HoursResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &HoursResolver{calendar: calendar, loc: loc}
}

// WorkableIntervals returns the open sub-intervals for the doctor on the
// given calendar day, with the lunch break excluded and the result
// clipped to the optional notBefore/notAfter bounds (zero values mean
// unbounded). Vacation days and days without an available working-hours
// row yield an empty result.
func (r *HoursResolver) WorkableIntervals(ctx context.Context, doctorID uuid.UUID, day time.Time, notBefore, notAfter time.Time) ([]Interval, error) {
	day = truncateToDay(day.In(r.loc))

	vacations, err := r.calendar.ListVacations(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list vacations: %w", err)
	}
	for i := range vacations {
		if vacations[i].Covers(day) {
			return nil, nil
		}
	}

	wh, err := r.calendar.GetWorkingHours(ctx, doctorID, day.Weekday())
	if err != nil {
		if errors.Is(err, ErrWorkingHoursNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load working hours: %w", err)
	}
	if !wh.IsAvailable {
		return nil, nil
	}

	workStart, err := anchorWallClock(day, wh.StartTime, r.loc)
	if err != nil {
		return nil, fmt.Errorf("working hours start: %w", err)
	}
	workEnd, err := anchorWallClock(day, wh.EndTime, r.loc)
	if err != nil {
		return nil, fmt.Errorf("working hours end: %w", err)
	}

	work := Interval{Start: workStart, End: workEnd}
	if work.IsZero() {
		return nil, nil
	}

	parts := []Interval{work}
	if wh.BreakStart != nil && wh.BreakEnd != nil {
		breakStart, err := anchorWallClock(day, *wh.BreakStart, r.loc)
		if err != nil {
			return nil, fmt.Errorf("break start: %w", err)
		}
		breakEnd, err := anchorWallClock(day, *wh.BreakEnd, r.loc)
		if err != nil {
			return nil, fmt.Errorf("break end: %w", err)
		}
		parts = splitAround(work, Interval{Start: breakStart, End: breakEnd})
	}

	var out []Interval
	for _, p := range parts {
		clipped := p.Clip(notBefore, notAfter)
		if !clipped.IsZero() {
			out = append(out, clipped)
		}
	}
	return out, nil
}

// CoversInterval reports whether [start, end) lies fully inside one of
// the doctor's workable sub-intervals for that day. The returned reason
// describes why not, for the out-of-hours error surfaced to callers.
func (r *HoursResolver) CoversInterval(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (bool, string, error) {
	parts, err := r.WorkableIntervals(ctx, doctorID, start, time.Time{}, time.Time{})
	if err != nil {
		return false, "", err
	}
	if len(parts) == 0 {
		return false, "doctor does not work on this day", nil
	}
	for _, p := range parts {
		if Contains(p.Start, p.End, start, end) {
			return true, "", nil
		}
	}
	return false, "requested time falls outside working hours", nil
}

// splitAround removes hole from work, dropping any empty remainder.
func splitAround(work, hole Interval) []Interval {
	if hole.IsZero() || !work.Overlaps(hole) {
		return []Interval{work}
	}
	var parts []Interval
	before := Interval{Start: work.Start, End: hole.Start}
	if !before.IsZero() {
		parts = append(parts, before)
	}
	after := Interval{Start: hole.End, End: work.End}
	if !after.IsZero() {
		parts = append(parts, after)
	}
	return parts
}

// anchorWallClock turns a "15:04" wall-clock string into an instant on
// the given day in the clinic timezone.
func anchorWallClock(day time.Time, hm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse wall clock %q: %w", hm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
