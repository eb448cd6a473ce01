package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AvailabilityCache is the advisory slot cache. It is never
// authoritative; the orchestrator invalidates it on every mutation for
// the affected resources.
type AvailabilityCache interface {
	Invalidate(ctx context.Context, resources []Resource)
}

// CreateRequest is a booking request entering the orchestrator.
type CreateRequest struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	ClinicID    uuid.UUID
	RoomID      *uuid.UUID
	SpecialtyID *uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	Reason      *string
	Notes       *string
	ActorID     *uuid.UUID
}

// RescheduleRequest retires an existing appointment and books its
// replacement, which may name a different doctor, room, or time.
type RescheduleRequest struct {
	NewStartTime time.Time
	NewEndTime   time.Time
	NewDoctorID  *uuid.UUID
	NewRoomID    *uuid.UUID
	ActorID      *uuid.UUID
}

// EditRequest changes non-status fields of a live appointment.
type EditRequest struct {
	StartTime *time.Time
	EndTime   *time.Time
	RoomID    *uuid.UUID
	ActorID   *uuid.UUID
}

// OccurrenceFailure records one recurrence occurrence that could not be
// booked. The rest of the series is unaffected.
type OccurrenceFailure struct {
	StartTime time.Time
	Err       error
}

// SeriesResult is the per-item outcome of a recurring creation.
type SeriesResult struct {
	Anchor   *Appointment
	Created  []*Appointment
	Failures []OccurrenceFailure
}

// BatchFailure records one item of a bulk operation that failed.
type BatchFailure struct {
	AppointmentID uuid.UUID
	Err           error
}

// BatchResult is the per-item outcome of a bulk transition.
type BatchResult struct {
	Processed int
	Failed    int
	Failures  []BatchFailure
}

// Service is the scheduling orchestrator: the single entry point the
// surrounding CRUD layer uses to create, query, and transition
// appointments.
type Service struct {
	appointments AppointmentRepository
	directory    Directory
	calendar     CalendarRepository
	hours        *HoursResolver
	conflicts    *ConflictDetector
	slots        *SlotGenerator
	locker       ResourceLocker
	notifier     Notifier
	audit        AuditLogger
	waitingList  WaitingList
	cache        AvailabilityCache
	strictAudit  bool
	log          zerolog.Logger
	now          func() time.Time
}

// ServiceOptions wires the orchestrator's collaborators. Notifier,
// AuditLogger, WaitingList and Cache may be nil; the corresponding side
// effects are then skipped.
type ServiceOptions struct {
	Appointments AppointmentRepository
	Calendar     CalendarRepository
	Directory    Directory
	Locker       ResourceLocker
	Notifier     Notifier
	Audit        AuditLogger
	WaitingList  WaitingList
	Cache        AvailabilityCache
	StrictAudit  bool
	Location     *time.Location
	Logger       zerolog.Logger
}

func NewService(opts ServiceOptions) *Service {
	hours := NewHoursResolver(opts.Calendar, opts.Location)
	return &Service{
		appointments: opts.Appointments,
		directory:    opts.Directory,
		calendar:     opts.Calendar,
		hours:        hours,
		conflicts:    NewConflictDetector(opts.Appointments),
		slots:        NewSlotGenerator(hours, opts.Calendar, opts.Appointments),
		locker:       opts.Locker,
		notifier:     opts.Notifier,
		audit:        opts.Audit,
		waitingList:  opts.WaitingList,
		cache:        opts.Cache,
		strictAudit:  opts.StrictAudit,
		log:          opts.Logger,
		now:          time.Now,
	}
}

// CreateAppointment books a single appointment. The conflict read and
// the insert run inside one transaction, under a per-resource lock, so
// two concurrent requests for the same interval cannot both succeed.
func (s *Service) CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.PatientID, req.DoctorID, req.RoomID); err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:              uuid.New(),
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ClinicID:        req.ClinicID,
		RoomID:          req.RoomID,
		SpecialtyID:     req.SpecialtyID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: int(req.EndTime.Sub(req.StartTime) / time.Minute),
		Status:          StatusScheduled,
		Reason:          req.Reason,
		Notes:           req.Notes,
	}

	if err := s.bookValidated(ctx, appt, nil); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, AuditEntry{
		AppointmentID: appt.ID,
		Transition:    "create",
		ToStatus:      StatusScheduled,
		ActorID:       req.ActorID,
		OccurredAt:    s.now(),
	})
	if s.notifier != nil {
		s.notifier.AppointmentCreated(ctx, appt)
	}
	s.invalidate(ctx, appt.Resources())

	return appt, nil
}

// bookValidated runs the booking pipeline for an already-shaped
// appointment: resource lock, then conflict check, working-hours check,
// and insert inside one transaction. excludeID skips the record being
// rescheduled in overlap queries.
func (s *Service) bookValidated(ctx context.Context, appt *Appointment, excludeID *uuid.UUID) error {
	resources := appt.Resources()

	run := func(ctx context.Context) error {
		return s.appointments.WithinTx(ctx, func(txCtx context.Context) error {
			if err := s.conflicts.CheckAll(txCtx, resources, appt.StartTime, appt.EndTime, excludeID); err != nil {
				return err
			}

			ok, reason, err := s.hours.CoversInterval(txCtx, appt.DoctorID, appt.StartTime, appt.EndTime)
			if err != nil {
				return fmt.Errorf("resolve working hours: %w", err)
			}
			if !ok {
				return &OutOfHoursError{
					DoctorID:  appt.DoctorID,
					Requested: appt.Interval(),
					Reason:    reason,
				}
			}

			if err := s.checkBlocks(txCtx, appt.DoctorID, appt.StartTime, appt.EndTime); err != nil {
				return err
			}

			if err := s.appointments.Create(txCtx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
			return nil
		})
	}

	if s.locker != nil {
		return s.locker.WithResourceLock(ctx, resources, run)
	}
	return run(ctx)
}

// CreateRecurringSeries books the anchor appointment and then each
// expanded occurrence independently through the full create path. A
// colliding occurrence is recorded as a failure without aborting its
// siblings.
func (s *Service) CreateRecurringSeries(ctx context.Context, req CreateRequest, rule RecurrenceRule) (*SeriesResult, error) {
	anchor, err := s.CreateAppointment(ctx, req)
	if err != nil {
		return nil, err
	}

	occurrences, err := ExpandRecurrence(req.StartTime, rule)
	if err != nil {
		return nil, err
	}

	duration := req.EndTime.Sub(req.StartTime)
	result := &SeriesResult{Anchor: anchor}

	for _, start := range occurrences {
		occReq := req
		occReq.StartTime = start
		occReq.EndTime = start.Add(duration)

		occ, err := s.createFollowUp(ctx, occReq, anchor.ID)
		if err != nil {
			s.log.Warn().
				Err(err).
				Time("occurrence_start", start).
				Str("anchor_id", anchor.ID.String()).
				Msg("recurrence occurrence skipped")
			result.Failures = append(result.Failures, OccurrenceFailure{StartTime: start, Err: err})
			continue
		}
		result.Created = append(result.Created, occ)
	}
	return result, nil
}

func (s *Service) createFollowUp(ctx context.Context, req CreateRequest, originalID uuid.UUID) (*Appointment, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.PatientID, req.DoctorID, req.RoomID); err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:                    uuid.New(),
		PatientID:             req.PatientID,
		DoctorID:              req.DoctorID,
		ClinicID:              req.ClinicID,
		RoomID:                req.RoomID,
		SpecialtyID:           req.SpecialtyID,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		DurationMinutes:       int(req.EndTime.Sub(req.StartTime) / time.Minute),
		Status:                StatusScheduled,
		Reason:                req.Reason,
		Notes:                 req.Notes,
		OriginalAppointmentID: &originalID,
	}

	if err := s.bookValidated(ctx, appt, nil); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, AuditEntry{
		AppointmentID: appt.ID,
		Transition:    "create",
		ToStatus:      StatusScheduled,
		ActorID:       req.ActorID,
		OccurredAt:    s.now(),
		Detail:        map[string]any{"original_appointment_id": originalID.String()},
	})
	if s.notifier != nil {
		s.notifier.AppointmentCreated(ctx, appt)
	}
	s.invalidate(ctx, appt.Resources())

	return appt, nil
}

// Reschedule retires the original record and spawns its replacement.
// The original keeps its history; the new record carries the lineage
// pointer and is re-validated against conflicts and working hours.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*Appointment, *Appointment, error) {
	original, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !CanTransition(original.Status, TransitionReschedule) {
		return nil, nil, &TransitionError{AppointmentID: id, From: original.Status, Transition: TransitionReschedule}
	}
	if err := validateInterval(req.NewStartTime, req.NewEndTime); err != nil {
		return nil, nil, err
	}

	doctorID := original.DoctorID
	if req.NewDoctorID != nil {
		doctorID = *req.NewDoctorID
	}
	roomID := original.RoomID
	if req.NewRoomID != nil {
		roomID = req.NewRoomID
	}
	if s.directory != nil {
		if req.NewDoctorID != nil {
			if err := s.directory.DoctorExists(ctx, doctorID); err != nil {
				return nil, nil, err
			}
		}
		if req.NewRoomID != nil {
			if err := s.directory.RoomExists(ctx, *roomID); err != nil {
				return nil, nil, err
			}
		}
	}

	replacement := &Appointment{
		ID:                    uuid.New(),
		PatientID:             original.PatientID,
		DoctorID:              doctorID,
		ClinicID:              original.ClinicID,
		RoomID:                roomID,
		SpecialtyID:           original.SpecialtyID,
		StartTime:             req.NewStartTime,
		EndTime:               req.NewEndTime,
		DurationMinutes:       int(req.NewEndTime.Sub(req.NewStartTime) / time.Minute),
		Status:                StatusScheduled,
		Reason:                original.Reason,
		Notes:                 original.Notes,
		OriginalAppointmentID: &original.ID,
	}

	resources := replacement.Resources()
	now := s.now()

	var retired *Appointment
	run := func(ctx context.Context) error {
		return s.appointments.WithinTx(ctx, func(txCtx context.Context) error {
			if err := s.conflicts.CheckAll(txCtx, resources, replacement.StartTime, replacement.EndTime, &original.ID); err != nil {
				return err
			}

			ok, reason, err := s.hours.CoversInterval(txCtx, doctorID, replacement.StartTime, replacement.EndTime)
			if err != nil {
				return fmt.Errorf("resolve working hours: %w", err)
			}
			if !ok {
				return &OutOfHoursError{DoctorID: doctorID, Requested: replacement.Interval(), Reason: reason}
			}
			if err := s.checkBlocks(txCtx, doctorID, replacement.StartTime, replacement.EndTime); err != nil {
				return err
			}

			upd, err := buildTransition(original, TransitionReschedule, now, nil)
			if err != nil {
				return err
			}
			retired, err = s.appointments.UpdateStatus(txCtx, original.ID, original.Status, upd)
			if err != nil {
				if errors.Is(err, ErrAppointmentNotFound) {
					return &TransitionError{AppointmentID: id, From: original.Status, Transition: TransitionReschedule}
				}
				return fmt.Errorf("retire original appointment: %w", err)
			}

			if err := s.appointments.Create(txCtx, replacement); err != nil {
				return fmt.Errorf("create replacement appointment: %w", err)
			}
			return nil
		})
	}

	if s.locker != nil {
		err = s.locker.WithResourceLock(ctx, resources, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	s.recordAudit(ctx, AuditEntry{
		AppointmentID: original.ID,
		Transition:    TransitionReschedule,
		FromStatus:    original.Status,
		ToStatus:      StatusRescheduled,
		ActorID:       req.ActorID,
		OccurredAt:    now,
		Detail:        map[string]any{"replacement_id": replacement.ID.String()},
	})
	if s.notifier != nil {
		s.notifier.AppointmentTransitioned(ctx, retired, TransitionReschedule)
		s.notifier.AppointmentCreated(ctx, replacement)
	}
	s.invalidate(ctx, append(original.Resources(), resources...))

	return retired, replacement, nil
}

// GetAvailableSlots runs the slot generator for the given criteria.
func (s *Service) GetAvailableSlots(ctx context.Context, criteria SlotCriteria) ([]Slot, error) {
	return s.slots.Generate(ctx, criteria)
}

// GetAppointment loads a single appointment.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// ListByDoctor returns a doctor's appointments inside [from, to).
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, from, to, clampLimit(limit), maxInt(offset, 0))
}

// ListByPatient returns a patient's appointments inside [from, to).
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	return s.appointments.ListByPatient(ctx, patientID, from, to, clampLimit(limit), maxInt(offset, 0))
}

// Confirm moves a scheduled appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*Appointment, error) {
	return s.applyTransition(ctx, id, TransitionConfirm, actorID, nil)
}

// CheckIn records the patient's arrival.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*Appointment, error) {
	return s.applyTransition(ctx, id, TransitionCheckIn, actorID, nil)
}

// Start begins the visit.
func (s *Service) Start(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*Appointment, error) {
	return s.applyTransition(ctx, id, TransitionStart, actorID, nil)
}

// Complete ends the visit.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*Appointment, error) {
	return s.applyTransition(ctx, id, TransitionComplete, actorID, nil)
}

// Cancel releases the booking and tells the waiting list about the
// freed interval.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID *uuid.UUID, reason *string) (*Appointment, error) {
	appt, err := s.applyTransition(ctx, id, TransitionCancel, actorID, reason)
	if err != nil {
		return nil, err
	}
	if s.waitingList != nil {
		s.waitingList.SlotFreed(ctx, appt.DoctorID, appt.ClinicID, appt.Interval())
	}
	return appt, nil
}

// NoShow marks an appointment the patient never arrived for.
func (s *Service) NoShow(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*Appointment, error) {
	return s.applyTransition(ctx, id, TransitionNoShow, actorID, nil)
}

func (s *Service) applyTransition(ctx context.Context, id uuid.UUID, tr Transition, actorID *uuid.UUID, reason *string) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	upd, err := buildTransition(appt, tr, now, reason)
	if err != nil {
		return nil, err
	}

	// The compare-and-swap on the source status is what keeps the
	// transition atomic under concurrent requests: a race loser's
	// update matches zero rows.
	updated, err := s.appointments.UpdateStatus(ctx, id, appt.Status, upd)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &TransitionError{AppointmentID: id, From: appt.Status, Transition: tr}
		}
		return nil, fmt.Errorf("apply %s: %w", tr, err)
	}

	entry := AuditEntry{
		AppointmentID: id,
		Transition:    tr,
		FromStatus:    appt.Status,
		ToStatus:      updated.Status,
		ActorID:       actorID,
		OccurredAt:    now,
	}
	switch tr {
	case TransitionStart:
		if waited, ok := WaitingDuration(updated); ok {
			entry.Detail = map[string]any{"waiting_minutes": int(waited / time.Minute)}
		}
	case TransitionComplete:
		if length, ok := ConsultationDuration(updated); ok {
			entry.Detail = map[string]any{"consultation_minutes": int(length / time.Minute)}
		}
	}
	s.recordAudit(ctx, entry)

	if s.notifier != nil {
		s.notifier.AppointmentTransitioned(ctx, updated, tr)
	}
	s.invalidate(ctx, updated.Resources())

	return updated, nil
}

// Edit changes time or room of a live appointment, re-running conflict
// and working-hours checks when the booked interval or room moved.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, req EditRequest) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !EditableFrom(appt.Status) {
		return nil, &TransitionError{AppointmentID: id, From: appt.Status, Transition: "edit"}
	}

	start := appt.StartTime
	end := appt.EndTime
	roomID := appt.RoomID
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if req.RoomID != nil {
		roomID = req.RoomID
	}

	timeChanged := !start.Equal(appt.StartTime) || !end.Equal(appt.EndTime)
	roomChanged := !uuidPtrEqual(roomID, appt.RoomID)
	if !timeChanged && !roomChanged {
		return appt, nil
	}
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	if roomChanged && roomID != nil && s.directory != nil {
		if err := s.directory.RoomExists(ctx, *roomID); err != nil {
			return nil, err
		}
	}

	resources := []Resource{DoctorResource(appt.DoctorID), PatientResource(appt.PatientID)}
	if roomID != nil {
		resources = append(resources, RoomResource(*roomID))
	}

	var updated *Appointment
	run := func(ctx context.Context) error {
		return s.appointments.WithinTx(ctx, func(txCtx context.Context) error {
			if err := s.conflicts.CheckAll(txCtx, resources, start, end, &id); err != nil {
				return err
			}
			ok, reason, err := s.hours.CoversInterval(txCtx, appt.DoctorID, start, end)
			if err != nil {
				return fmt.Errorf("resolve working hours: %w", err)
			}
			if !ok {
				return &OutOfHoursError{DoctorID: appt.DoctorID, Requested: Interval{Start: start, End: end}, Reason: reason}
			}
			if err := s.checkBlocks(txCtx, appt.DoctorID, start, end); err != nil {
				return err
			}
			updated, err = s.appointments.UpdateTimes(txCtx, id, start, end, roomID)
			if err != nil {
				return fmt.Errorf("update appointment times: %w", err)
			}
			return nil
		})
	}

	if s.locker != nil {
		err = s.locker.WithResourceLock(ctx, resources, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, AuditEntry{
		AppointmentID: id,
		Transition:    "edit",
		FromStatus:    appt.Status,
		ToStatus:      updated.Status,
		ActorID:       req.ActorID,
		OccurredAt:    s.now(),
	})
	s.invalidate(ctx, append(appt.Resources(), resources...))

	return updated, nil
}

// Delete soft-deletes an appointment. The row survives for audit but
// stops appearing in listings and conflict checks.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.recordAudit(ctx, AuditEntry{
		AppointmentID: id,
		Transition:    "delete",
		FromStatus:    appt.Status,
		ToStatus:      appt.Status,
		ActorID:       actorID,
		OccurredAt:    s.now(),
	})
	s.invalidate(ctx, appt.Resources())
	return nil
}

// BulkCancel cancels a set of appointments, isolating per-item failures.
func (s *Service) BulkCancel(ctx context.Context, ids []uuid.UUID, actorID *uuid.UUID, reason *string) BatchResult {
	return s.bulk(ids, func(id uuid.UUID) error {
		_, err := s.Cancel(ctx, id, actorID, reason)
		return err
	})
}

// BulkConfirm confirms a set of appointments, isolating per-item
// failures.
func (s *Service) BulkConfirm(ctx context.Context, ids []uuid.UUID, actorID *uuid.UUID) BatchResult {
	return s.bulk(ids, func(id uuid.UUID) error {
		_, err := s.Confirm(ctx, id, actorID)
		return err
	})
}

func (s *Service) bulk(ids []uuid.UUID, op func(uuid.UUID) error) BatchResult {
	var result BatchResult
	for _, id := range ids {
		if err := op(id); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{AppointmentID: id, Err: err})
			continue
		}
		result.Processed++
	}
	return result
}

// SweepNoShows marks scheduled and confirmed appointments whose start
// time passed more than grace ago as no-shows. Run periodically by the
// reminder worker; per-item failures are logged and skipped.
func (s *Service) SweepNoShows(ctx context.Context, grace time.Duration) (int, error) {
	overdue, err := s.appointments.FindOverdue(ctx, s.now(), grace)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	swept := 0
	for i := range overdue {
		if _, err := s.NoShow(ctx, overdue[i].ID, nil); err != nil {
			s.log.Warn().
				Err(err).
				Str("appointment_id", overdue[i].ID.String()).
				Msg("no-show sweep skipped appointment")
			continue
		}
		swept++
	}
	return swept, nil
}

// recordAudit writes an audit entry. Failures are swallowed with a
// warning unless strict auditing is configured.
func (s *Service) recordAudit(ctx context.Context, entry AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		if s.strictAudit {
			s.log.Error().Err(err).
				Str("appointment_id", entry.AppointmentID.String()).
				Str("transition", string(entry.Transition)).
				Msg("audit record failed under strict audit policy")
			return
		}
		s.log.Warn().Err(err).
			Str("appointment_id", entry.AppointmentID.String()).
			Str("transition", string(entry.Transition)).
			Msg("audit record failed")
	}
}

// checkReferences verifies the booked records exist before any lock or
// transaction is taken. A nil directory skips the checks.
func (s *Service) checkReferences(ctx context.Context, patientID, doctorID uuid.UUID, roomID *uuid.UUID) error {
	if s.directory == nil {
		return nil
	}
	if err := s.directory.PatientExists(ctx, patientID); err != nil {
		return err
	}
	if err := s.directory.DoctorExists(ctx, doctorID); err != nil {
		return err
	}
	if roomID != nil {
		if err := s.directory.RoomExists(ctx, *roomID); err != nil {
			return err
		}
	}
	return nil
}

// checkBlocks rejects an interval that overlaps an ad-hoc calendar
// closure. Blocks apply even when the working-hours template covers
// the interval, and an all-day block closes the whole day.
func (s *Service) checkBlocks(ctx context.Context, doctorID uuid.UUID, start, end time.Time) error {
	day := truncateToDay(start.In(s.hours.loc))
	blocks, err := s.calendar.ListBlocks(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("list schedule blocks: %w", err)
	}
	if overlapsBlock(blocks, start, end) {
		return &OutOfHoursError{
			DoctorID:  doctorID,
			Requested: Interval{Start: start, End: end},
			Reason:    "doctor's calendar is blocked for this time",
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, resources []Resource) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, resources)
	}
}

func validateCreate(req CreateRequest) error {
	if req.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient_id", Detail: "required"}
	}
	if req.DoctorID == uuid.Nil {
		return &ValidationError{Field: "doctor_id", Detail: "required"}
	}
	if req.ClinicID == uuid.Nil {
		return &ValidationError{Field: "clinic_id", Detail: "required"}
	}
	return validateInterval(req.StartTime, req.EndTime)
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Field: "time", Detail: "start and end are required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "time", Detail: "end must be after start"}
	}
	return nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
