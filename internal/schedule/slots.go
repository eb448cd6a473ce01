package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultSlotLimit caps a slot query that does not ask for a limit.
const DefaultSlotLimit = 50

// SlotCriteria describes one availability query.
type SlotCriteria struct {
	DoctorIDs       []uuid.UUID
	From            time.Time // first calendar day considered, inclusive
	To              time.Time // last calendar day considered, inclusive
	DurationMinutes int
	DaysOfWeek      []time.Weekday // empty means every day
	EarliestTime    string         // optional "15:04" lower bound per day
	LatestTime      string         // optional "15:04" upper bound per day
	Limit           int            // 0 means DefaultSlotLimit
}

func (c *SlotCriteria) validate() error {
	if len(c.DoctorIDs) == 0 {
		return &ValidationError{Field: "doctor_ids", Detail: "at least one doctor is required"}
	}
	if c.DurationMinutes <= 0 {
		return &ValidationError{Field: "duration_minutes", Detail: "must be positive"}
	}
	if c.From.IsZero() || c.To.IsZero() {
		return &ValidationError{Field: "date_range", Detail: "from and to are required"}
	}
	if c.To.Before(c.From) {
		return &ValidationError{Field: "date_range", Detail: "to precedes from"}
	}
	return nil
}

// SlotGenerator walks a date range and emits bookable slots. It reads
// only; identical criteria against unchanged data yield identical
// ordered output.
type SlotGenerator struct {
	hours        *HoursResolver
	calendar     CalendarRepository
	appointments AppointmentRepository
	now          func() time.Time
}

func NewSlotGenerator(hours *HoursResolver, calendar CalendarRepository, appointments AppointmentRepository) *SlotGenerator {
	return &SlotGenerator{
		hours:        hours,
		calendar:     calendar,
		appointments: appointments,
		now:          time.Now,
	}
}

// Generate returns bookable slots matching the criteria, ascending by
// start time across all doctors, ties broken by doctor id. Generation
// stops once the limit is reached.
func (g *SlotGenerator) Generate(ctx context.Context, criteria SlotCriteria) ([]Slot, error) {
	if err := criteria.validate(); err != nil {
		return nil, err
	}

	limit := criteria.Limit
	if limit <= 0 {
		limit = DefaultSlotLimit
	}

	duration := time.Duration(criteria.DurationMinutes) * time.Minute
	now := g.now()

	var out []Slot
	for day := truncateToDay(criteria.From); !day.After(truncateToDay(criteria.To)); day = day.AddDate(0, 0, 1) {
		if !weekdayAllowed(day.Weekday(), criteria.DaysOfWeek) {
			continue
		}

		daySlots, err := g.generateDay(ctx, criteria, day, duration, now)
		if err != nil {
			return nil, err
		}

		// Stable day-level merge across doctors keeps the global
		// ordering ascending with a deterministic tiebreak.
		sort.SliceStable(daySlots, func(i, j int) bool {
			if !daySlots[i].StartTime.Equal(daySlots[j].StartTime) {
				return daySlots[i].StartTime.Before(daySlots[j].StartTime)
			}
			return daySlots[i].DoctorID.String() < daySlots[j].DoctorID.String()
		})

		for _, s := range daySlots {
			out = append(out, s)
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (g *SlotGenerator) generateDay(ctx context.Context, criteria SlotCriteria, day time.Time, duration time.Duration, now time.Time) ([]Slot, error) {
	var daySlots []Slot
	dayEnd := day.AddDate(0, 0, 1)

	for _, doctorID := range criteria.DoctorIDs {
		notBefore, notAfter, err := dayBounds(day, criteria.EarliestTime, criteria.LatestTime, g.hours.loc)
		if err != nil {
			return nil, err
		}

		parts, err := g.hours.WorkableIntervals(ctx, doctorID, day, notBefore, notAfter)
		if err != nil {
			return nil, fmt.Errorf("resolve hours for doctor %s: %w", doctorID, err)
		}
		if len(parts) == 0 {
			continue
		}

		blocks, err := g.calendar.ListBlocks(ctx, doctorID, day, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("list blocks for doctor %s: %w", doctorID, err)
		}
		booked, err := g.appointments.ListForDoctorRange(ctx, doctorID, day, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("list appointments for doctor %s: %w", doctorID, err)
		}

		for _, part := range parts {
			for start := part.Start; !start.Add(duration).After(part.End); start = start.Add(duration) {
				end := start.Add(duration)
				if !start.After(now) {
					continue
				}
				if overlapsBlock(blocks, start, end) {
					continue
				}
				if overlapsAppointment(booked, start, end) {
					continue
				}
				daySlots = append(daySlots, Slot{
					DoctorID:        doctorID,
					StartTime:       start,
					EndTime:         end,
					DurationMinutes: criteria.DurationMinutes,
				})
			}
		}
	}
	return daySlots, nil
}

func dayBounds(day time.Time, earliest, latest string, loc *time.Location) (time.Time, time.Time, error) {
	var notBefore, notAfter time.Time
	if earliest != "" {
		t, err := anchorWallClock(day, earliest, loc)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Field: "earliest_time", Detail: err.Error()}
		}
		notBefore = t
	}
	if latest != "" {
		t, err := anchorWallClock(day, latest, loc)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Field: "latest_time", Detail: err.Error()}
		}
		notAfter = t
	}
	return notBefore, notAfter, nil
}

func weekdayAllowed(day time.Weekday, allowed []time.Weekday) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, w := range allowed {
		if w == day {
			return true
		}
	}
	return false
}

func overlapsBlock(blocks []ScheduleBlock, start, end time.Time) bool {
	for i := range blocks {
		if blocks[i].AllDay {
			return true
		}
		if Overlaps(start, end, blocks[i].StartTime, blocks[i].EndTime) {
			return true
		}
	}
	return false
}

func overlapsAppointment(appts []Appointment, start, end time.Time) bool {
	for i := range appts {
		if Overlaps(start, end, appts[i].StartTime, appts[i].EndTime) {
			return true
		}
	}
	return false
}
