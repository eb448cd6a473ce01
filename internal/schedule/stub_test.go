package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memAppointments is the in-memory AppointmentRepository used across the
// package tests. It applies the same blocking-status and soft-delete
// filters as the SQL implementation.
type memAppointments struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*Appointment
	createErr error
	txCalls   int
}

func newMemAppointments() *memAppointments {
	return &memAppointments{items: map[uuid.UUID]*Appointment{}}
}

func (m *memAppointments) add(a Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := a
	m.items[a.ID] = &cp
}

func (m *memAppointments) get(id uuid.UUID) Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[id]
}

func (m *memAppointments) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func matchesResource(a *Appointment, res Resource) bool {
	switch res.Kind {
	case ResourceDoctor:
		return a.DoctorID == res.ID
	case ResourcePatient:
		return a.PatientID == res.ID
	case ResourceRoom:
		return a.RoomID != nil && *a.RoomID == res.ID
	}
	return false
}

func (m *memAppointments) FindOverlapping(_ context.Context, res Resource, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.items {
		if a.DeletedAt != nil || !a.Status.Blocking() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if matchesResource(a, res) && Overlaps(start, end, a.StartTime, a.EndTime) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAppointments) ListForDoctorRange(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.items {
		if a.DeletedAt != nil || !a.Status.Blocking() || a.DoctorID != doctorID {
			continue
		}
		if Overlaps(from, to, a.StartTime, a.EndTime) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAppointments) ListByPatient(_ context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.items {
		if a.DeletedAt != nil || a.PatientID != patientID {
			continue
		}
		if !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAppointments) ListByDoctor(_ context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.items {
		if a.DeletedAt != nil || a.DoctorID != doctorID {
			continue
		}
		if !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAppointments) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *memAppointments) UpdateStatus(_ context.Context, id uuid.UUID, from AppointmentStatus, upd StatusUpdate) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.DeletedAt != nil || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = upd.To
	if upd.ConfirmedAt != nil {
		a.ConfirmedAt = upd.ConfirmedAt
	}
	if upd.CheckInTime != nil {
		a.CheckInTime = upd.CheckInTime
	}
	if upd.ActualStartTime != nil {
		a.ActualStartTime = upd.ActualStartTime
	}
	if upd.ActualEndTime != nil {
		a.ActualEndTime = upd.ActualEndTime
	}
	if upd.CancelledAt != nil {
		a.CancelledAt = upd.CancelledAt
	}
	if upd.CancellationReason != nil {
		a.CancellationReason = upd.CancellationReason
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memAppointments) UpdateTimes(_ context.Context, id uuid.UUID, start, end time.Time, roomID *uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.DeletedAt != nil || !EditableFrom(a.Status) {
		return nil, ErrAppointmentNotFound
	}
	a.StartTime = start
	a.EndTime = end
	a.DurationMinutes = int(end.Sub(start) / time.Minute)
	a.RoomID = roomID
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *memAppointments) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.DeletedAt != nil {
		return ErrAppointmentNotFound
	}
	now := time.Now()
	a.DeletedAt = &now
	return nil
}

func (m *memAppointments) FindOverdue(_ context.Context, now time.Time, grace time.Duration) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := now.Add(-grace)
	var out []Appointment
	for _, a := range m.items {
		if a.DeletedAt != nil {
			continue
		}
		if (a.Status == StatusScheduled || a.Status == StatusConfirmed) && a.StartTime.Before(cutoff) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAppointments) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.txCalls++
	m.mu.Unlock()
	return fn(ctx)
}

// memCalendar serves working hours, vacations, and blocks from fields.
type memCalendar struct {
	hours     map[uuid.UUID]map[time.Weekday]*WorkingHours
	vacations []DoctorVacation
	blocks    []ScheduleBlock
}

func newMemCalendar() *memCalendar {
	return &memCalendar{hours: map[uuid.UUID]map[time.Weekday]*WorkingHours{}}
}

func (c *memCalendar) setHours(doctorID uuid.UUID, day time.Weekday, wh WorkingHours) {
	wh.DoctorID = doctorID
	wh.DayOfWeek = day
	if c.hours[doctorID] == nil {
		c.hours[doctorID] = map[time.Weekday]*WorkingHours{}
	}
	c.hours[doctorID][day] = &wh
}

func (c *memCalendar) GetWorkingHours(_ context.Context, doctorID uuid.UUID, day time.Weekday) (*WorkingHours, error) {
	wh, ok := c.hours[doctorID][day]
	if !ok {
		return nil, ErrWorkingHoursNotFound
	}
	cp := *wh
	return &cp, nil
}

func (c *memCalendar) ListVacations(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]DoctorVacation, error) {
	var out []DoctorVacation
	for _, v := range c.vacations {
		if v.DoctorID == doctorID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *memCalendar) ListBlocks(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]ScheduleBlock, error) {
	var out []ScheduleBlock
	for _, b := range c.blocks {
		if b.DoctorID == doctorID && Overlaps(from, to, b.StartTime, b.EndTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

// memDirectory knows a fixed set of record ids.
type memDirectory struct {
	patients map[uuid.UUID]bool
	doctors  map[uuid.UUID]bool
	rooms    map[uuid.UUID]bool
}

func (d *memDirectory) PatientExists(_ context.Context, id uuid.UUID) error {
	if !d.patients[id] {
		return ErrPatientNotFound
	}
	return nil
}

func (d *memDirectory) DoctorExists(_ context.Context, id uuid.UUID) error {
	if !d.doctors[id] {
		return ErrDoctorNotFound
	}
	return nil
}

func (d *memDirectory) RoomExists(_ context.Context, id uuid.UUID) error {
	if !d.rooms[id] {
		return ErrRoomNotFound
	}
	return nil
}

// recordingNotifier collects lifecycle signals.
type recordingNotifier struct {
	mu           sync.Mutex
	created      []uuid.UUID
	transitioned []Transition
}

func (n *recordingNotifier) AppointmentCreated(_ context.Context, a *Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, a.ID)
}

func (n *recordingNotifier) AppointmentTransitioned(_ context.Context, a *Appointment, tr Transition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitioned = append(n.transitioned, tr)
}

// recordingAudit collects audit entries, optionally failing every write.
type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (l *recordingAudit) Record(_ context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, entry)
	return nil
}

// recordingWaitingList collects freed intervals.
type recordingWaitingList struct {
	mu    sync.Mutex
	freed []Interval
}

func (w *recordingWaitingList) SlotFreed(_ context.Context, doctorID, clinicID uuid.UUID, freed Interval) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.freed = append(w.freed, freed)
}

// countingLocker counts acquisitions and holds a mutex for the
// duration of fn, so concurrent callers run their critical sections
// one at a time like holders of the Redis lock do.
type countingLocker struct {
	mu         sync.Mutex
	calls      int
	lastLock   []Resource
	acquireErr error

	held sync.Mutex
}

func (l *countingLocker) WithResourceLock(ctx context.Context, resources []Resource, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.calls++
	l.lastLock = resources
	err := l.acquireErr
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.held.Lock()
	defer l.held.Unlock()
	return fn(ctx)
}

// recordingCache collects invalidated resource sets.
type recordingCache struct {
	mu          sync.Mutex
	invalidated [][]Resource
}

func (c *recordingCache) Invalidate(_ context.Context, resources []Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, resources)
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }
