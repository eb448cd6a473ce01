package schedule

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogNotifier is the default Notifier: it emits structured log lines in
// place of a real dispatch channel.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) AppointmentCreated(_ context.Context, a *Appointment) {
	n.log.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Str("patient_id", a.PatientID.String()).
		Time("start_time", a.StartTime).
		Msg("appointment created")
}

func (n *LogNotifier) AppointmentTransitioned(_ context.Context, a *Appointment, tr Transition) {
	n.log.Info().
		Str("appointment_id", a.ID.String()).
		Str("transition", string(tr)).
		Str("status", string(a.Status)).
		Msg("appointment transitioned")
}

// LogWaitingList satisfies the waiting-list boundary by announcing the
// freed interval. Matching a waiting patient to the slot happens
// outside this service.
type LogWaitingList struct {
	log zerolog.Logger
}

func NewLogWaitingList(log zerolog.Logger) *LogWaitingList {
	return &LogWaitingList{log: log}
}

func (w *LogWaitingList) SlotFreed(_ context.Context, doctorID, clinicID uuid.UUID, freed Interval) {
	w.log.Info().
		Str("doctor_id", doctorID.String()).
		Str("clinic_id", clinicID.String()).
		Time("freed_start", freed.Start).
		Time("freed_end", freed.End).
		Msg("cancellation freed a slot")
}
