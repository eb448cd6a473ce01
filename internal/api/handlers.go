package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisclient "github.com/medcore/clinic-scheduling/internal/redis"
	"github.com/medcore/clinic-scheduling/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func createAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		createReq, err := buildCreateRequest(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		if req.Recurrence != nil {
			rule, err := buildRecurrenceRule(*req.Recurrence)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_recurrence", err.Error())
				return
			}
			result, err := svc.CreateRecurringSeries(r.Context(), createReq, rule)
			if err != nil {
				handleScheduleError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toSeriesResponse(result))
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), createReq)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qp := r.URL.Query()

		from, to, err := parseDateRange(qp.Get("from"), qp.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date_range", err.Error())
			return
		}
		limit, _ := strconv.Atoi(qp.Get("limit"))
		offset, _ := strconv.Atoi(qp.Get("offset"))

		var appts []schedule.Appointment
		switch {
		case qp.Get("doctor_id") != "":
			doctorID, err := uuid.Parse(qp.Get("doctor_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByDoctor(r.Context(), doctorID, from, to, limit, offset)
			if err != nil {
				handleScheduleError(w, err)
				return
			}
		case qp.Get("patient_id") != "":
			patientID, err := uuid.Parse(qp.Get("patient_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			appts, err = svc.ListByPatient(r.Context(), patientID, from, to, limit, offset)
			if err != nil {
				handleScheduleError(w, err)
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "doctor_id or patient_id is required")
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func transitionHandler(apply func(r *http.Request, id uuid.UUID) (*schedule.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		appt, err := apply(r, id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, id uuid.UUID) (*schedule.Appointment, error) {
		var req CancelAppointmentRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, &schedule.ValidationError{Field: "body", Detail: "could not parse JSON"}
			}
		}
		return svc.Cancel(r.Context(), id, nil, req.Reason)
	})
}

func rescheduleAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		schedReq := schedule.RescheduleRequest{
			NewStartTime: req.NewStartTime,
			NewEndTime:   req.NewEndTime,
		}
		if req.NewDoctorID != nil {
			doctorID, err := uuid.Parse(*req.NewDoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_new_doctor_id", "new_doctor_id must be a valid UUID")
				return
			}
			schedReq.NewDoctorID = &doctorID
		}
		if req.NewRoomID != nil {
			roomID, err := uuid.Parse(*req.NewRoomID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_new_room_id", "new_room_id must be a valid UUID")
				return
			}
			schedReq.NewRoomID = &roomID
		}

		original, replacement, err := svc.Reschedule(r.Context(), id, schedReq)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RescheduleResponse{
			Original:    toAppointmentResponse(original),
			Replacement: toAppointmentResponse(replacement),
		})
	}
}

func editAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req EditAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		editReq := schedule.EditRequest{StartTime: req.StartTime, EndTime: req.EndTime}
		if req.RoomID != nil {
			roomID, err := uuid.Parse(*req.RoomID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_room_id", "room_id must be a valid UUID")
				return
			}
			editReq.RoomID = &roomID
		}

		appt, err := svc.Edit(r.Context(), id, editReq)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func searchSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qp := r.URL.Query()

		var doctorIDs []uuid.UUID
		for _, raw := range strings.Split(qp.Get("doctor_ids"), ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_ids", "doctor_ids must be comma-separated UUIDs")
				return
			}
			doctorIDs = append(doctorIDs, id)
		}

		from, to, err := parseDateRange(qp.Get("from"), qp.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date_range", err.Error())
			return
		}

		duration, _ := strconv.Atoi(qp.Get("duration_minutes"))
		limit, _ := strconv.Atoi(qp.Get("limit"))

		criteria := schedule.SlotCriteria{
			DoctorIDs:       doctorIDs,
			From:            from,
			To:              to.AddDate(0, 0, -1), // undo parseDateRange's +1 day; the generator walks through To inclusively
			DurationMinutes: duration,
			EarliestTime:    qp.Get("earliest"),
			LatestTime:      qp.Get("latest"),
			Limit:           limit,
		}
		for _, raw := range strings.Split(qp.Get("days_of_week"), ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 || n > 6 {
				writeError(w, http.StatusBadRequest, "invalid_days_of_week", "days_of_week must be integers 0-6")
				return
			}
			criteria.DaysOfWeek = append(criteria.DaysOfWeek, time.Weekday(n))
		}

		slots, err := svc.GetAvailableSlots(r.Context(), criteria)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, SlotResponse{
				DoctorID:        s.DoctorID,
				StartTime:       s.StartTime,
				EndTime:         s.EndTime,
				DurationMinutes: s.DurationMinutes,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), id, nil); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errors.New("from and to query parameters are required")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
	}
	// End date is exclusive: add one day so records on the end date are
	// included.
	return from, to.AddDate(0, 0, 1), nil
}

func buildCreateRequest(req CreateAppointmentRequest) (schedule.CreateRequest, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return schedule.CreateRequest{}, errors.New("patient_id must be a valid UUID")
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return schedule.CreateRequest{}, errors.New("doctor_id must be a valid UUID")
	}
	clinicID, err := uuid.Parse(req.ClinicID)
	if err != nil {
		return schedule.CreateRequest{}, errors.New("clinic_id must be a valid UUID")
	}

	out := schedule.CreateRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		ClinicID:  clinicID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
		Notes:     req.Notes,
	}
	if req.RoomID != nil {
		roomID, err := uuid.Parse(*req.RoomID)
		if err != nil {
			return schedule.CreateRequest{}, errors.New("room_id must be a valid UUID")
		}
		out.RoomID = &roomID
	}
	if req.SpecialtyID != nil {
		specialtyID, err := uuid.Parse(*req.SpecialtyID)
		if err != nil {
			return schedule.CreateRequest{}, errors.New("specialty_id must be a valid UUID")
		}
		out.SpecialtyID = &specialtyID
	}
	return out, nil
}

func buildRecurrenceRule(req RecurrenceRequest) (schedule.RecurrenceRule, error) {
	rule := schedule.RecurrenceRule{
		Type:           schedule.RecurrenceType(strings.ToLower(req.Type)),
		Interval:       req.Interval,
		EndDate:        req.EndDate,
		MaxOccurrences: req.MaxOccurrences,
	}
	for _, n := range req.DaysOfWeek {
		if n < 0 || n > 6 {
			return schedule.RecurrenceRule{}, errors.New("days_of_week must be integers 0-6")
		}
		rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(n))
	}
	return rule, rule.Validate()
}

func toSeriesResponse(result *schedule.SeriesResult) SeriesResponse {
	out := SeriesResponse{
		Anchor:   toAppointmentResponse(result.Anchor),
		Created:  make([]AppointmentResponse, 0, len(result.Created)),
		Failures: make([]OccurrenceFailure, 0, len(result.Failures)),
	}
	for _, a := range result.Created {
		out.Created = append(out.Created, toAppointmentResponse(a))
	}
	for _, f := range result.Failures {
		out.Failures = append(out.Failures, OccurrenceFailure{StartTime: f.StartTime, Error: f.Err.Error()})
	}
	return out
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound),
		errors.Is(err, schedule.ErrPatientNotFound),
		errors.Is(err, schedule.ErrDoctorNotFound),
		errors.Is(err, schedule.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, schedule.ErrConflict):
		writeError(w, http.StatusConflict, "scheduling_conflict", err.Error())
	case errors.Is(err, schedule.ErrOutOfHours):
		writeError(w, http.StatusConflict, "out_of_hours", err.Error())
	case errors.Is(err, schedule.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "booking_in_progress", "another booking for this resource is in flight, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
