package schedule

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusWaiting     AppointmentStatus = "waiting"
	StatusInProgress  AppointmentStatus = "in_progress"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// Terminal reports whether no further lifecycle transition is defined for
// this record.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// Blocking reports whether an appointment in this status still occupies
// its interval for conflict purposes. Cancelled, no-show and rescheduled
// records release their slot.
func (s AppointmentStatus) Blocking() bool {
	switch s {
	case StatusCancelled, StatusNoShow, StatusRescheduled:
		return false
	}
	return true
}

// ResourceKind identifies which participant an interval is reserved
// against. Conflict checks run once per kind involved in a booking.
type ResourceKind string

const (
	ResourceDoctor  ResourceKind = "doctor"
	ResourcePatient ResourceKind = "patient"
	ResourceRoom    ResourceKind = "room"
)

// Resource is a (kind, id) pair addressing one conflict-checkable party.
type Resource struct {
	Kind ResourceKind
	ID   uuid.UUID
}

func DoctorResource(id uuid.UUID) Resource  { return Resource{Kind: ResourceDoctor, ID: id} }
func PatientResource(id uuid.UUID) Resource { return Resource{Kind: ResourcePatient, ID: id} }
func RoomResource(id uuid.UUID) Resource    { return Resource{Kind: ResourceRoom, ID: id} }

type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	ClinicID        uuid.UUID
	RoomID          *uuid.UUID
	SpecialtyID     *uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Status          AppointmentStatus
	Reason          *string
	Notes           *string

	// Set when this record was spawned by a reschedule or follow-up.
	OriginalAppointmentID *uuid.UUID

	// Each stamped exactly once by the corresponding transition.
	ConfirmedAt     *time.Time
	CheckInTime     *time.Time
	ActualStartTime *time.Time
	ActualEndTime   *time.Time
	CancelledAt     *time.Time

	CancellationReason *string
	DeletedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Interval returns the appointment's booked [start, end) range.
func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// Resources returns every resource this appointment reserves.
func (a *Appointment) Resources() []Resource {
	res := []Resource{DoctorResource(a.DoctorID), PatientResource(a.PatientID)}
	if a.RoomID != nil {
		res = append(res, RoomResource(*a.RoomID))
	}
	return res
}

// WorkingHours is the weekly template row for one (doctor, weekday).
// Times are wall-clock strings in "15:04" form, anchored to a concrete
// date by the hours resolver.
type WorkingHours struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	DayOfWeek   time.Weekday
	IsAvailable bool
	StartTime   string
	EndTime     string
	BreakStart  *string
	BreakEnd    *string
}

// ScheduleBlock is an ad-hoc closure of a doctor's calendar. Overlapping
// a block makes a slot unbookable regardless of working hours.
type ScheduleBlock struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	AllDay    bool
	Reason    *string
}

// DoctorVacation closes every day in the inclusive [StartDate, EndDate]
// range.
type DoctorVacation struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Reason    *string
}

// Covers reports whether day falls inside the vacation range. Only the
// calendar date matters.
func (v *DoctorVacation) Covers(day time.Time) bool {
	d := truncateToDay(day)
	return !d.Before(truncateToDay(v.StartDate)) && !d.After(truncateToDay(v.EndDate))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type RecurrenceType string

const (
	RecurrenceDaily     RecurrenceType = "daily"
	RecurrenceWeekly    RecurrenceType = "weekly"
	RecurrenceBiweekly  RecurrenceType = "biweekly"
	RecurrenceMonthly   RecurrenceType = "monthly"
	RecurrenceQuarterly RecurrenceType = "quarterly"
)

// RecurrenceRule describes a repeating series attached to a creation
// request. It is not persisted as its own entity.
type RecurrenceRule struct {
	Type           RecurrenceType
	Interval       int
	EndDate        *time.Time
	MaxOccurrences *int
	DaysOfWeek     []time.Weekday
}

type WaitingStatus string

const (
	WaitingStatusWaiting   WaitingStatus = "waiting"
	WaitingStatusContacted WaitingStatus = "contacted"
	WaitingStatusScheduled WaitingStatus = "scheduled"
	WaitingStatusCancelled WaitingStatus = "cancelled"
	WaitingStatusExpired   WaitingStatus = "expired"
)

type WaitingListEntry struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	ClinicID      uuid.UUID
	PreferredDate *time.Time
	Priority      int
	Status        WaitingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Slot is a candidate bookable interval for a specific doctor, as
// produced by the slot generator.
type Slot struct {
	DoctorID        uuid.UUID
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
}
