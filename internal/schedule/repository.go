package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentRepository contains every appointment table interaction the
// orchestrator needs. Implementations must exclude soft-deleted rows and
// non-blocking statuses from overlap queries.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindOverlapping returns blocking appointments for the resource
	// whose [start, end) intersects the given interval, excluding the
	// appointment with excludeID when non-nil.
	FindOverlapping(ctx context.Context, res Resource, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error)

	// ListForDoctorRange returns blocking appointments for a doctor
	// inside [from, to), ordered by start time. Used by the slot
	// generator to avoid one overlap query per candidate slot.
	ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error)

	Create(ctx context.Context, a *Appointment) error

	// UpdateStatus performs a compare-and-swap status change, stamping
	// the timestamp columns carried on upd. It returns
	// ErrAppointmentNotFound when no row matched (id, from).
	UpdateStatus(ctx context.Context, id uuid.UUID, from AppointmentStatus, upd StatusUpdate) (*Appointment, error)

	// UpdateTimes rewrites the bookable fields of a non-terminal
	// appointment after an edit has been re-validated.
	UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time, roomID *uuid.UUID) (*Appointment, error)

	SoftDelete(ctx context.Context, id uuid.UUID) error

	// FindOverdue returns blocking scheduled/confirmed appointments
	// whose start time passed more than grace ago. Consumed by the
	// reminder worker's no-show sweep.
	FindOverdue(ctx context.Context, now time.Time, grace time.Duration) ([]Appointment, error)

	// WithinTx runs fn inside one database transaction so that the
	// conflict read and the appointment write cannot interleave with a
	// concurrent booking. Repository methods called with the ctx passed
	// to fn join that transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatusUpdate carries the column changes applied alongside a status
// transition.
type StatusUpdate struct {
	To                 AppointmentStatus
	ConfirmedAt        *time.Time
	CheckInTime        *time.Time
	ActualStartTime    *time.Time
	ActualEndTime      *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
}

// CalendarRepository serves the read-only availability tables.
type CalendarRepository interface {
	GetWorkingHours(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*WorkingHours, error)
	ListVacations(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]DoctorVacation, error)
	ListBlocks(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]ScheduleBlock, error)
}

// ErrWorkingHoursNotFound is returned by GetWorkingHours when no row
// exists for the (doctor, weekday) pair; the resolver treats it as a
// closed day, not a failure.
var ErrWorkingHoursNotFound = errNotFoundWorkingHours{}

type errNotFoundWorkingHours struct{}

func (errNotFoundWorkingHours) Error() string { return "working hours not found" }

// Directory answers existence checks for the records owned by the
// surrounding CRUD layer. The scheduling core never reads their
// contents, only verifies the references on a booking.
type Directory interface {
	PatientExists(ctx context.Context, id uuid.UUID) error
	DoctorExists(ctx context.Context, id uuid.UUID) error
	RoomExists(ctx context.Context, id uuid.UUID) error
}

// Notifier receives fire-and-forget lifecycle signals. Delivery failures
// are logged by the orchestrator and never surfaced to the caller.
type Notifier interface {
	AppointmentCreated(ctx context.Context, a *Appointment)
	AppointmentTransitioned(ctx context.Context, a *Appointment, tr Transition)
}

// AuditLogger records an immutable entry for every state transition.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditEntry is one immutable lifecycle log line.
type AuditEntry struct {
	AppointmentID uuid.UUID
	Transition    Transition
	FromStatus    AppointmentStatus
	ToStatus      AppointmentStatus
	ActorID       *uuid.UUID
	OccurredAt    time.Time
	Detail        map[string]any
}

// WaitingList is told when a cancellation frees an interval so it can
// independently try to fill the slot.
type WaitingList interface {
	SlotFreed(ctx context.Context, doctorID, clinicID uuid.UUID, freed Interval)
}

// ResourceLocker serializes bookings against the same resource across
// processes. Acquisition failure means another request holds the lock
// and the caller should retry.
type ResourceLocker interface {
	WithResourceLock(ctx context.Context, resources []Resource, fn func(ctx context.Context) error) error
}
