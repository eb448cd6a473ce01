package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medcore/clinic-scheduling/internal/schedule"
)

type CreateAppointmentRequest struct {
	PatientID   string             `json:"patient_id"`
	DoctorID    string             `json:"doctor_id"`
	ClinicID    string             `json:"clinic_id"`
	RoomID      *string            `json:"room_id,omitempty"`
	SpecialtyID *string            `json:"specialty_id,omitempty"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     time.Time          `json:"end_time"`
	Reason      *string            `json:"reason,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
	Recurrence  *RecurrenceRequest `json:"recurrence,omitempty"`
}

type RecurrenceRequest struct {
	Type           string     `json:"type"`
	Interval       int        `json:"interval,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	MaxOccurrences *int       `json:"max_occurrences,omitempty"`
	DaysOfWeek     []int      `json:"days_of_week,omitempty"`
}

type RescheduleAppointmentRequest struct {
	NewStartTime time.Time `json:"new_start_time"`
	NewEndTime   time.Time `json:"new_end_time"`
	NewDoctorID  *string   `json:"new_doctor_id,omitempty"`
	NewRoomID    *string   `json:"new_room_id,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type EditAppointmentRequest struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	RoomID    *string    `json:"room_id,omitempty"`
}

type AppointmentResponse struct {
	ID                    uuid.UUID  `json:"id"`
	PatientID             uuid.UUID  `json:"patient_id"`
	DoctorID              uuid.UUID  `json:"doctor_id"`
	ClinicID              uuid.UUID  `json:"clinic_id"`
	RoomID                *uuid.UUID `json:"room_id,omitempty"`
	StartTime             time.Time  `json:"start_time"`
	EndTime               time.Time  `json:"end_time"`
	DurationMinutes       int        `json:"duration_minutes"`
	Status                string     `json:"status"`
	OriginalAppointmentID *uuid.UUID `json:"original_appointment_id,omitempty"`
	ConfirmedAt           *time.Time `json:"confirmed_at,omitempty"`
	CheckInTime           *time.Time `json:"check_in_time,omitempty"`
	ActualStartTime       *time.Time `json:"actual_start_time,omitempty"`
	ActualEndTime         *time.Time `json:"actual_end_time,omitempty"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                    a.ID,
		PatientID:             a.PatientID,
		DoctorID:              a.DoctorID,
		ClinicID:              a.ClinicID,
		RoomID:                a.RoomID,
		StartTime:             a.StartTime,
		EndTime:               a.EndTime,
		DurationMinutes:       a.DurationMinutes,
		Status:                string(a.Status),
		OriginalAppointmentID: a.OriginalAppointmentID,
		ConfirmedAt:           a.ConfirmedAt,
		CheckInTime:           a.CheckInTime,
		ActualStartTime:       a.ActualStartTime,
		ActualEndTime:         a.ActualEndTime,
		CancelledAt:           a.CancelledAt,
	}
}

type SeriesResponse struct {
	Anchor   AppointmentResponse   `json:"anchor"`
	Created  []AppointmentResponse `json:"created"`
	Failures []OccurrenceFailure   `json:"failures"`
}

type OccurrenceFailure struct {
	StartTime time.Time `json:"start_time"`
	Error     string    `json:"error"`
}

type RescheduleResponse struct {
	Original    AppointmentResponse `json:"original"`
	Replacement AppointmentResponse `json:"replacement"`
}

type SlotResponse struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
