package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrConflict is the sentinel matched by every ConflictError.
	ErrConflict = errors.New("scheduling conflict")

	// ErrOutOfHours is the sentinel matched by every OutOfHoursError.
	ErrOutOfHours = errors.New("outside working hours")

	// ErrInvalidTransition is the sentinel matched by every
	// TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is the sentinel matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ConflictError reports that a candidate interval overlaps an existing
// booking for one of the resources involved. It carries enough detail
// for the caller to offer an alternative slot.
type ConflictError struct {
	Resource    Resource
	Requested   Interval
	Conflicting Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already booked from %s to %s",
		e.Resource.Kind, e.Resource.ID,
		e.Conflicting.Start.Format(time.RFC3339), e.Conflicting.End.Format(time.RFC3339))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// OutOfHoursError reports that a candidate interval falls outside the
// doctor's workable hours for that day, including vacation and day-off.
type OutOfHoursError struct {
	DoctorID  uuid.UUID
	Requested Interval
	Reason    string
}

func (e *OutOfHoursError) Error() string {
	return fmt.Sprintf("doctor %s is not available at %s: %s",
		e.DoctorID, e.Requested.Start.Format(time.RFC3339), e.Reason)
}

func (e *OutOfHoursError) Is(target error) bool { return target == ErrOutOfHours }

// TransitionError reports a lifecycle transition attempted from a status
// that does not permit it.
type TransitionError struct {
	AppointmentID uuid.UUID
	From          AppointmentStatus
	Transition    Transition
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s appointment %s from status %s", e.Transition, e.AppointmentID, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ValidationError rejects malformed input before any resource check runs.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
