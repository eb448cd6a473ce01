package schedule

import "time"

// Transition is one edge of the appointment lifecycle.
type Transition string

const (
	TransitionConfirm    Transition = "confirm"
	TransitionCheckIn    Transition = "check_in"
	TransitionStart      Transition = "start"
	TransitionComplete   Transition = "complete"
	TransitionCancel     Transition = "cancel"
	TransitionNoShow     Transition = "no_show"
	TransitionReschedule Transition = "reschedule"
)

// allowedFrom lists, per transition, the statuses it may be applied
// from. Everything else is rejected as an invalid transition.
var allowedFrom = map[Transition][]AppointmentStatus{
	TransitionConfirm:    {StatusScheduled},
	TransitionCheckIn:    {StatusScheduled, StatusConfirmed},
	TransitionStart:      {StatusWaiting, StatusConfirmed, StatusScheduled},
	TransitionComplete:   {StatusInProgress},
	TransitionCancel:     {StatusScheduled, StatusConfirmed, StatusWaiting},
	TransitionNoShow:     {StatusScheduled, StatusConfirmed},
	TransitionReschedule: {StatusScheduled, StatusConfirmed},
}

// transitionTarget maps each transition to the status it produces on the
// record it is applied to. Reschedule retires the original record; the
// replacement is created separately in StatusScheduled.
var transitionTarget = map[Transition]AppointmentStatus{
	TransitionConfirm:    StatusConfirmed,
	TransitionCheckIn:    StatusWaiting,
	TransitionStart:      StatusInProgress,
	TransitionComplete:   StatusCompleted,
	TransitionCancel:     StatusCancelled,
	TransitionNoShow:     StatusNoShow,
	TransitionReschedule: StatusRescheduled,
}

// CanTransition reports whether tr is legal from the given status.
func CanTransition(from AppointmentStatus, tr Transition) bool {
	for _, s := range allowedFrom[tr] {
		if s == from {
			return true
		}
	}
	return false
}

// EditableFrom reports whether non-status fields of an appointment may
// still be edited. Past the confirmed stage the visit is underway or
// settled and the booking is immutable.
func EditableFrom(status AppointmentStatus) bool {
	return status == StatusScheduled || status == StatusConfirmed
}

// buildTransition validates tr against the appointment's current status
// and produces the status update that applies it, stamping the
// timestamp owned by the transition. The repository applies the update
// with a compare-and-swap on the source status, which keeps
// check-then-act atomic per appointment.
func buildTransition(a *Appointment, tr Transition, now time.Time, cancellationReason *string) (StatusUpdate, error) {
	if !CanTransition(a.Status, tr) {
		return StatusUpdate{}, &TransitionError{AppointmentID: a.ID, From: a.Status, Transition: tr}
	}

	upd := StatusUpdate{To: transitionTarget[tr]}
	switch tr {
	case TransitionConfirm:
		upd.ConfirmedAt = &now
	case TransitionCheckIn:
		upd.CheckInTime = &now
	case TransitionStart:
		upd.ActualStartTime = &now
	case TransitionComplete:
		upd.ActualEndTime = &now
	case TransitionCancel:
		upd.CancelledAt = &now
		upd.CancellationReason = cancellationReason
	}
	return upd, nil
}

// WaitingDuration returns how long the patient waited between check-in
// and the start of the visit, when both timestamps are present.
func WaitingDuration(a *Appointment) (time.Duration, bool) {
	if a.CheckInTime == nil || a.ActualStartTime == nil {
		return 0, false
	}
	return a.ActualStartTime.Sub(*a.CheckInTime), true
}

// ConsultationDuration returns the actual length of a completed visit.
func ConsultationDuration(a *Appointment) (time.Duration, bool) {
	if a.ActualStartTime == nil || a.ActualEndTime == nil {
		return 0, false
	}
	return a.ActualEndTime.Sub(*a.ActualStartTime), true
}
