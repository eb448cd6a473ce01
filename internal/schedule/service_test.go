package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc         *Service
	appts       *memAppointments
	cal         *memCalendar
	dir         *memDirectory
	notifier    *recordingNotifier
	audit       *recordingAudit
	waitingList *recordingWaitingList
	locker      *countingLocker
	cache       *recordingCache

	patientID uuid.UUID
	doctorID  uuid.UUID
	clinicID  uuid.UUID
	roomID    uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		appts:       newMemAppointments(),
		cal:         newMemCalendar(),
		notifier:    &recordingNotifier{},
		audit:       &recordingAudit{},
		waitingList: &recordingWaitingList{},
		locker:      &countingLocker{},
		cache:       &recordingCache{},
		patientID:   uuid.New(),
		doctorID:    uuid.New(),
		clinicID:    uuid.New(),
		roomID:      uuid.New(),
	}
	f.dir = &memDirectory{
		patients: map[uuid.UUID]bool{f.patientID: true},
		doctors:  map[uuid.UUID]bool{f.doctorID: true},
		rooms:    map[uuid.UUID]bool{f.roomID: true},
	}

	// The doctor works every day so calendar setup does not distract
	// from the behavior under test.
	for d := time.Sunday; d <= time.Saturday; d++ {
		f.cal.setHours(f.doctorID, d, WorkingHours{
			ID: uuid.New(), IsAvailable: true, StartTime: "08:00", EndTime: "18:00",
		})
	}

	f.svc = NewService(ServiceOptions{
		Appointments: f.appts,
		Calendar:     f.cal,
		Directory:    f.dir,
		Locker:       f.locker,
		Notifier:     f.notifier,
		Audit:        f.audit,
		WaitingList:  f.waitingList,
		Cache:        f.cache,
		Location:     time.UTC,
		Logger:       zerolog.Nop(),
	})
	return f
}

func (f *serviceFixture) createRequest(start, end time.Time) CreateRequest {
	return CreateRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		ClinicID:  f.clinicID,
		StartTime: start,
		EndTime:   end,
	}
}

func TestCreateAppointment(t *testing.T) {
	ctx := context.Background()

	t.Run("books a valid request", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		assert.Equal(t, StatusScheduled, appt.Status)
		assert.Equal(t, 30, appt.DurationMinutes)
		assert.Equal(t, 1, f.locker.calls)
		assert.Equal(t, 1, f.appts.txCalls)
		assert.Equal(t, []uuid.UUID{appt.ID}, f.notifier.created)
		require.Len(t, f.audit.entries, 1)
		assert.Equal(t, Transition("create"), f.audit.entries[0].Transition)
		assert.Len(t, f.cache.invalidated, 1)
	})

	t.Run("rejects a doctor double booking", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		req := f.createRequest(at(10, 15), at(10, 45))
		req.PatientID = uuid.New()
		f.dir.patients[req.PatientID] = true
		_, err = f.svc.CreateAppointment(ctx, req)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflict)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, ResourceDoctor, conflict.Resource.Kind)
	})

	t.Run("rejects a patient double booking with another doctor", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		otherDoctor := uuid.New()
		f.dir.doctors[otherDoctor] = true
		for d := time.Sunday; d <= time.Saturday; d++ {
			f.cal.setHours(otherDoctor, d, WorkingHours{
				ID: uuid.New(), IsAvailable: true, StartTime: "08:00", EndTime: "18:00",
			})
		}

		req := f.createRequest(at(10, 0), at(10, 30))
		req.DoctorID = otherDoctor
		_, err = f.svc.CreateAppointment(ctx, req)
		require.Error(t, err)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, ResourcePatient, conflict.Resource.Kind)
	})

	t.Run("back-to-back bookings do not conflict", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		_, err = f.svc.CreateAppointment(ctx, f.createRequest(at(10, 30), at(11, 0)))
		assert.NoError(t, err)
	})

	t.Run("rejects out-of-hours bookings", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateAppointment(ctx, f.createRequest(at(19, 0), at(19, 30)))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOutOfHours)
		assert.Empty(t, f.notifier.created)
		assert.Empty(t, f.audit.entries)
	})

	t.Run("rejects unknown references", func(t *testing.T) {
		f := newServiceFixture(t)

		req := f.createRequest(at(10, 0), at(10, 30))
		req.PatientID = uuid.New()
		_, err := f.svc.CreateAppointment(ctx, req)
		assert.ErrorIs(t, err, ErrPatientNotFound)

		req = f.createRequest(at(10, 0), at(10, 30))
		req.DoctorID = uuid.New()
		_, err = f.svc.CreateAppointment(ctx, req)
		assert.ErrorIs(t, err, ErrDoctorNotFound)

		unknownRoom := uuid.New()
		req = f.createRequest(at(10, 0), at(10, 30))
		req.RoomID = &unknownRoom
		_, err = f.svc.CreateAppointment(ctx, req)
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("rejects malformed intervals", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateAppointment(ctx, f.createRequest(at(11, 0), at(10, 0)))
		assert.ErrorIs(t, err, ErrValidation)

		_, err = f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 0)))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("room bookings conflict across doctors", func(t *testing.T) {
		f := newServiceFixture(t)
		req := f.createRequest(at(10, 0), at(10, 30))
		req.RoomID = &f.roomID
		_, err := f.svc.CreateAppointment(ctx, req)
		require.NoError(t, err)

		otherDoctor := uuid.New()
		otherPatient := uuid.New()
		f.dir.doctors[otherDoctor] = true
		f.dir.patients[otherPatient] = true
		for d := time.Sunday; d <= time.Saturday; d++ {
			f.cal.setHours(otherDoctor, d, WorkingHours{
				ID: uuid.New(), IsAvailable: true, StartTime: "08:00", EndTime: "18:00",
			})
		}

		second := f.createRequest(at(10, 0), at(10, 30))
		second.DoctorID = otherDoctor
		second.PatientID = otherPatient
		second.RoomID = &f.roomID
		_, err = f.svc.CreateAppointment(ctx, second)
		require.Error(t, err)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, ResourceRoom, conflict.Resource.Kind)
	})

	t.Run("lock failure surfaces before any write", func(t *testing.T) {
		f := newServiceFixture(t)
		f.locker.acquireErr = context.DeadlineExceeded
		_, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.Error(t, err)
		assert.Empty(t, f.appts.items)
	})
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()

	book := func(t *testing.T, f *serviceFixture) *Appointment {
		t.Helper()
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)
		return appt
	}

	t.Run("full happy path stamps each timestamp once", func(t *testing.T) {
		f := newServiceFixture(t)
		appt := book(t, f)

		confirmed, err := f.svc.Confirm(ctx, appt.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, confirmed.Status)
		assert.NotNil(t, confirmed.ConfirmedAt)

		waiting, err := f.svc.CheckIn(ctx, appt.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusWaiting, waiting.Status)
		assert.NotNil(t, waiting.CheckInTime)

		inProgress, err := f.svc.Start(ctx, appt.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, inProgress.Status)
		assert.NotNil(t, inProgress.ActualStartTime)

		done, err := f.svc.Complete(ctx, appt.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, done.Status)
		assert.NotNil(t, done.ActualEndTime)

		// create + 4 transitions.
		assert.Len(t, f.audit.entries, 5)
		assert.Equal(t, []Transition{
			TransitionConfirm, TransitionCheckIn, TransitionStart, TransitionComplete,
		}, f.notifier.transitioned)
	})

	t.Run("cancel releases the slot to the waiting list", func(t *testing.T) {
		f := newServiceFixture(t)
		appt := book(t, f)

		cancelled, err := f.svc.Cancel(ctx, appt.ID, nil, strPtr("patient request"))
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancellationReason)
		assert.Equal(t, "patient request", *cancelled.CancellationReason)

		require.Len(t, f.waitingList.freed, 1)
		assert.Equal(t, appt.Interval(), f.waitingList.freed[0])

		// The freed interval is immediately bookable again.
		req := f.createRequest(at(10, 0), at(10, 30))
		_, err = f.svc.CreateAppointment(ctx, req)
		assert.NoError(t, err)
	})

	t.Run("transition from a terminal status is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		appt := book(t, f)
		_, err := f.svc.Cancel(ctx, appt.ID, nil, nil)
		require.NoError(t, err)

		_, err = f.svc.Confirm(ctx, appt.ID, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = f.svc.Cancel(ctx, appt.ID, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("complete requires an in-progress visit", func(t *testing.T) {
		f := newServiceFixture(t)
		appt := book(t, f)
		_, err := f.svc.Complete(ctx, appt.ID, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Confirm(ctx, uuid.New(), nil)
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})

	t.Run("start records the waiting time in the audit detail", func(t *testing.T) {
		f := newServiceFixture(t)
		appt := book(t, f)
		_, err := f.svc.CheckIn(ctx, appt.ID, nil)
		require.NoError(t, err)
		_, err = f.svc.Start(ctx, appt.ID, nil)
		require.NoError(t, err)

		last := f.audit.entries[len(f.audit.entries)-1]
		assert.Equal(t, TransitionStart, last.Transition)
		assert.Contains(t, last.Detail, "waiting_minutes")
	})
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("retires the original and links the replacement", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		retired, replacement, err := f.svc.Reschedule(ctx, appt.ID, RescheduleRequest{
			NewStartTime: at(14, 0),
			NewEndTime:   at(14, 30),
		})
		require.NoError(t, err)

		assert.Equal(t, StatusRescheduled, retired.Status)
		assert.Equal(t, StatusScheduled, replacement.Status)
		require.NotNil(t, replacement.OriginalAppointmentID)
		assert.Equal(t, appt.ID, *replacement.OriginalAppointmentID)
		assert.Equal(t, appt.PatientID, replacement.PatientID)
		assert.NotEqual(t, appt.ID, replacement.ID)

		// The retired record no longer blocks its old interval.
		_, err = f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		assert.NoError(t, err)
	})

	t.Run("rescheduling onto the same interval succeeds", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		// Shifting by 15 minutes overlaps the original; the original
		// must be excluded from its own conflict check.
		_, replacement, err := f.svc.Reschedule(ctx, appt.ID, RescheduleRequest{
			NewStartTime: at(10, 15),
			NewEndTime:   at(10, 45),
		})
		require.NoError(t, err)
		assert.Equal(t, at(10, 15), replacement.StartTime)
	})

	t.Run("replacement conflicts leave the original untouched", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		otherPatient := uuid.New()
		f.dir.patients[otherPatient] = true
		second := f.createRequest(at(14, 0), at(14, 30))
		second.PatientID = otherPatient
		_, err = f.svc.CreateAppointment(ctx, second)
		require.NoError(t, err)

		_, _, err = f.svc.Reschedule(ctx, appt.ID, RescheduleRequest{
			NewStartTime: at(14, 0),
			NewEndTime:   at(14, 30),
		})
		require.ErrorIs(t, err, ErrConflict)

		current := f.appts.get(appt.ID)
		assert.Equal(t, StatusScheduled, current.Status)
	})

	t.Run("new doctor must exist and be available", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		unknown := uuid.New()
		_, _, err = f.svc.Reschedule(ctx, appt.ID, RescheduleRequest{
			NewStartTime: at(14, 0),
			NewEndTime:   at(14, 30),
			NewDoctorID:  &unknown,
		})
		assert.ErrorIs(t, err, ErrDoctorNotFound)
	})

	t.Run("completed appointments cannot be rescheduled", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)
		_, err = f.svc.Start(ctx, appt.ID, nil)
		require.NoError(t, err)
		_, err = f.svc.Complete(ctx, appt.ID, nil)
		require.NoError(t, err)

		_, _, err = f.svc.Reschedule(ctx, appt.ID, RescheduleRequest{
			NewStartTime: at(14, 0),
			NewEndTime:   at(14, 30),
		})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestCreateRecurringSeries(t *testing.T) {
	ctx := context.Background()

	t.Run("books every occurrence and links them to the anchor", func(t *testing.T) {
		f := newServiceFixture(t)
		result, err := f.svc.CreateRecurringSeries(ctx,
			f.createRequest(at(10, 0), at(10, 30)),
			RecurrenceRule{Type: RecurrenceWeekly, MaxOccurrences: intPtr(3)})
		require.NoError(t, err)

		require.NotNil(t, result.Anchor)
		require.Len(t, result.Created, 3)
		assert.Empty(t, result.Failures)
		for i, occ := range result.Created {
			require.NotNil(t, occ.OriginalAppointmentID)
			assert.Equal(t, result.Anchor.ID, *occ.OriginalAppointmentID)
			assert.Equal(t, at(10, 0).AddDate(0, 0, 7*(i+1)), occ.StartTime)
		}
	})

	t.Run("a blocked occurrence fails alone", func(t *testing.T) {
		f := newServiceFixture(t)

		// Pre-book the second weekly occurrence for another patient.
		otherPatient := uuid.New()
		f.dir.patients[otherPatient] = true
		blockReq := f.createRequest(at(10, 0).AddDate(0, 0, 14), at(10, 30).AddDate(0, 0, 14))
		blockReq.PatientID = otherPatient
		_, err := f.svc.CreateAppointment(ctx, blockReq)
		require.NoError(t, err)

		result, err := f.svc.CreateRecurringSeries(ctx,
			f.createRequest(at(10, 0), at(10, 30)),
			RecurrenceRule{Type: RecurrenceWeekly, MaxOccurrences: intPtr(4)})
		require.NoError(t, err)

		assert.Len(t, result.Created, 3)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, at(10, 0).AddDate(0, 0, 14), result.Failures[0].StartTime)
		assert.ErrorIs(t, result.Failures[0].Err, ErrConflict)
	})

	t.Run("anchor failure aborts the series", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		result, err := f.svc.CreateRecurringSeries(ctx,
			f.createRequest(at(10, 0), at(10, 30)),
			RecurrenceRule{Type: RecurrenceWeekly, MaxOccurrences: intPtr(3)})
		require.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the booked interval after re-validation", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)

		updated, err := f.svc.Edit(ctx, appt.ID, EditRequest{
			StartTime: timePtr(at(15, 0)),
			EndTime:   timePtr(at(15, 45)),
		})
		require.NoError(t, err)
		assert.Equal(t, at(15, 0), updated.StartTime)
		assert.Equal(t, 45, updated.DurationMinutes)
	})

	t.Run("no-op edit returns the record unchanged", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)
		txBefore := f.appts.txCalls

		got, err := f.svc.Edit(ctx, appt.ID, EditRequest{})
		require.NoError(t, err)
		assert.Equal(t, appt.ID, got.ID)
		assert.Equal(t, txBefore, f.appts.txCalls)
	})

	t.Run("edit to a conflicting time is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		first, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)
		second, err := f.svc.CreateAppointment(ctx, f.createRequest(at(11, 0), at(11, 30)))
		require.NoError(t, err)

		_, err = f.svc.Edit(ctx, second.ID, EditRequest{
			StartTime: timePtr(first.StartTime),
			EndTime:   timePtr(first.EndTime),
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("in-progress appointments are immutable", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)
		_, err = f.svc.Start(ctx, appt.ID, nil)
		require.NoError(t, err)

		_, err = f.svc.Edit(ctx, appt.ID, EditRequest{StartTime: timePtr(at(15, 0)), EndTime: timePtr(at(15, 30))})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("moving to an unknown room is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.NoError(t, err)
		txBefore := f.appts.txCalls

		unknown := uuid.New()
		_, err = f.svc.Edit(ctx, appt.ID, EditRequest{RoomID: &unknown})
		assert.ErrorIs(t, err, ErrRoomNotFound)
		assert.Equal(t, txBefore, f.appts.txCalls)
	})
}

func TestBulkOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("bulk cancel isolates per-item failures", func(t *testing.T) {
		f := newServiceFixture(t)
		first, err := f.svc.CreateAppointment(ctx, f.createRequest(at(9, 0), at(9, 30)))
		require.NoError(t, err)
		second, err := f.svc.CreateAppointment(ctx, f.createRequest(at(11, 0), at(11, 30)))
		require.NoError(t, err)
		missing := uuid.New()

		result := f.svc.BulkCancel(ctx, []uuid.UUID{first.ID, missing, second.ID}, nil, nil)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, missing, result.Failures[0].AppointmentID)
		assert.ErrorIs(t, result.Failures[0].Err, ErrAppointmentNotFound)
	})

	t.Run("bulk confirm", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(9, 0), at(9, 30)))
		require.NoError(t, err)

		result := f.svc.BulkConfirm(ctx, []uuid.UUID{appt.ID}, nil)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, StatusConfirmed, f.appts.get(appt.ID).Status)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, appt.ID, nil))

	// Gone from reads and no longer blocking its interval.
	_, err = f.svc.GetAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	_, err = f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, appt.ID, nil), ErrAppointmentNotFound)
}

func TestSweepNoShows(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	// Booked normally, then the clock moves past the grace period.
	appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)
	upcoming, err := f.svc.CreateAppointment(ctx, f.createRequest(at(17, 0), at(17, 30)))
	require.NoError(t, err)

	f.svc.now = func() time.Time { return at(16, 0) }

	swept, err := f.svc.SweepNoShows(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Equal(t, StatusNoShow, f.appts.get(appt.ID).Status)
	assert.Equal(t, StatusScheduled, f.appts.get(upcoming.ID).Status)

	// A second sweep finds nothing: no-show is terminal.
	swept, err = f.svc.SweepNoShows(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestAuditFailureDoesNotBlockBooking(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.audit.err = context.DeadlineExceeded

	appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, f.appts.get(appt.ID).Status)
}

func TestScheduleBlocksGateBooking(t *testing.T) {
	ctx := context.Background()

	blockDoctor := func(f *serviceFixture, start, end time.Time, allDay bool) {
		f.cal.blocks = append(f.cal.blocks, ScheduleBlock{
			ID:        uuid.New(),
			DoctorID:  f.doctorID,
			StartTime: start,
			EndTime:   end,
			AllDay:    allDay,
		})
	}

	t.Run("create inside a block is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		blockDoctor(f, at(10, 0), at(11, 0), false)

		// The generator never offers the blocked interval...
		f.svc.slots.now = func() time.Time { return monday.AddDate(0, 0, -1) }
		slots, err := f.svc.GetAvailableSlots(ctx, SlotCriteria{
			DoctorIDs:       []uuid.UUID{f.doctorID},
			From:            monday,
			To:              monday,
			DurationMinutes: 30,
		})
		require.NoError(t, err)
		for _, s := range slots {
			assert.False(t, Overlaps(s.StartTime, s.EndTime, at(10, 0), at(11, 0)))
		}

		// ...and a direct booking of it is refused the same way.
		_, err = f.svc.CreateAppointment(ctx, f.createRequest(at(10, 0), at(10, 30)))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOutOfHours)
		assert.Empty(t, f.notifier.created)
	})

	t.Run("an all-day block closes the whole day", func(t *testing.T) {
		f := newServiceFixture(t)
		blockDoctor(f, at(0, 0), at(23, 59), true)

		_, err := f.svc.CreateAppointment(ctx, f.createRequest(at(14, 0), at(14, 30)))
		assert.ErrorIs(t, err, ErrOutOfHours)
	})

	t.Run("reschedule into a block leaves the original booked", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(9, 0), at(9, 30)))
		require.NoError(t, err)
		blockDoctor(f, at(14, 0), at(15, 0), false)

		_, _, err = f.svc.Reschedule(ctx, appt.ID, RescheduleRequest{
			NewStartTime: at(14, 0),
			NewEndTime:   at(14, 30),
		})
		assert.ErrorIs(t, err, ErrOutOfHours)
		assert.Equal(t, StatusScheduled, f.appts.get(appt.ID).Status)
	})

	t.Run("edit into a block is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(9, 0), at(9, 30)))
		require.NoError(t, err)
		blockDoctor(f, at(14, 0), at(15, 0), false)

		_, err = f.svc.Edit(ctx, appt.ID, EditRequest{
			StartTime: timePtr(at(14, 30)),
			EndTime:   timePtr(at(15, 0)),
		})
		assert.ErrorIs(t, err, ErrOutOfHours)
		assert.Equal(t, at(9, 0), f.appts.get(appt.ID).StartTime)
	})

	t.Run("booking clear of the block succeeds", func(t *testing.T) {
		f := newServiceFixture(t)
		blockDoctor(f, at(10, 0), at(11, 0), false)

		appt, err := f.svc.CreateAppointment(ctx, f.createRequest(at(11, 0), at(11, 30)))
		require.NoError(t, err)
		assert.Equal(t, StatusScheduled, appt.Status)
	})
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	otherPatient := uuid.New()
	f.dir.patients[otherPatient] = true

	first := f.createRequest(at(10, 0), at(10, 30))
	second := first
	second.PatientID = otherPatient

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, req := range []CreateRequest{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.CreateAppointment(ctx, req)
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 2, f.locker.calls)
	assert.Len(t, f.notifier.created, 1)
}
