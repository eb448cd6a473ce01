package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// PgAppointmentRepository is the pgx-backed appointment store.
type PgAppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgAppointmentRepository(pool *pgxpool.Pool) *PgAppointmentRepository {
	return &PgAppointmentRepository{pool: pool}
}

func (r *PgAppointmentRepository) q(ctx context.Context) pgQuerier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}

// pgQuerier is the common query surface of *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const appointmentColumns = `
	id, patient_id, doctor_id, clinic_id, room_id, specialty_id,
	start_time, end_time, duration_minutes, status, reason, notes,
	original_appointment_id,
	confirmed_at, check_in_time, actual_start_time, actual_end_time, cancelled_at,
	cancellation_reason, deleted_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ClinicID,
		&a.RoomID,
		&a.SpecialtyID,
		&a.StartTime,
		&a.EndTime,
		&a.DurationMinutes,
		&a.Status,
		&a.Reason,
		&a.Notes,
		&a.OriginalAppointmentID,
		&a.ConfirmedAt,
		&a.CheckInTime,
		&a.ActualStartTime,
		&a.ActualEndTime,
		&a.CancelledAt,
		&a.CancellationReason,
		&a.DeletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q(ctx).QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanAppointment(row)
}

// blockingStatuses filters out statuses that no longer hold their slot.
const blockingStatusFilter = `status NOT IN ('cancelled', 'no_show', 'rescheduled')`

var resourceColumn = map[ResourceKind]string{
	ResourceDoctor:  "doctor_id",
	ResourcePatient: "patient_id",
	ResourceRoom:    "room_id",
}

func (r *PgAppointmentRepository) FindOverlapping(ctx context.Context, res Resource, start, end time.Time, excludeID *uuid.UUID) ([]Appointment, error) {
	column, ok := resourceColumn[res.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown resource kind %q", res.Kind)
	}

	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND `+blockingStatusFilter+`
		  AND deleted_at IS NULL
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY start_time
	`, res.ID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgAppointmentRepository) ListForDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND `+blockingStatusFilter+`
		  AND deleted_at IS NULL
		ORDER BY start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgAppointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		  AND deleted_at IS NULL
		ORDER BY start_time
		LIMIT $4 OFFSET $5
	`, patientID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgAppointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]Appointment, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		  AND deleted_at IS NULL
		ORDER BY start_time
		LIMIT $4 OFFSET $5
	`, doctorID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgAppointmentRepository) Create(ctx context.Context, a *Appointment) error {
	row := r.q(ctx).QueryRow(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, clinic_id, room_id, specialty_id,
			start_time, end_time, duration_minutes, status, reason, notes,
			original_appointment_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PatientID, a.DoctorID, a.ClinicID, a.RoomID, a.SpecialtyID,
		a.StartTime, a.EndTime, a.DurationMinutes, a.Status, a.Reason, a.Notes,
		a.OriginalAppointmentID)

	created, err := scanAppointment(row)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	*a = *created
	return nil
}

func (r *PgAppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from AppointmentStatus, upd StatusUpdate) (*Appointment, error) {
	row := r.q(ctx).QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    confirmed_at = COALESCE($4, confirmed_at),
		    check_in_time = COALESCE($5, check_in_time),
		    actual_start_time = COALESCE($6, actual_start_time),
		    actual_end_time = COALESCE($7, actual_end_time),
		    cancelled_at = COALESCE($8, cancelled_at),
		    cancellation_reason = COALESCE($9, cancellation_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		  AND deleted_at IS NULL
		RETURNING `+appointmentColumns+`
	`, id, from, upd.To,
		upd.ConfirmedAt, upd.CheckInTime, upd.ActualStartTime,
		upd.ActualEndTime, upd.CancelledAt, upd.CancellationReason)

	return scanAppointment(row)
}

func (r *PgAppointmentRepository) UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time, roomID *uuid.UUID) (*Appointment, error) {
	row := r.q(ctx).QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $2,
		    end_time = $3,
		    duration_minutes = $4,
		    room_id = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('scheduled', 'confirmed')
		  AND deleted_at IS NULL
		RETURNING `+appointmentColumns+`
	`, id, start, end, int(end.Sub(start)/time.Minute), roomID)

	return scanAppointment(row)
}

func (r *PgAppointmentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgAppointmentRepository) FindOverdue(ctx context.Context, now time.Time, grace time.Duration) ([]Appointment, error) {
	rows, err := r.q(ctx).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('scheduled', 'confirmed')
		  AND start_time < $1
		  AND deleted_at IS NULL
		ORDER BY start_time
	`, now.Add(-grace))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// WithinTx runs fn inside a serializable transaction. The conflict read
// and the appointment insert share the transaction through the context,
// which closes the check-then-write race described by the booking
// contract.
func (r *PgAppointmentRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// PgCalendarRepository serves working hours, blocks, and vacations.
type PgCalendarRepository struct {
	pool *pgxpool.Pool
}

func NewPgCalendarRepository(pool *pgxpool.Pool) *PgCalendarRepository {
	return &PgCalendarRepository{pool: pool}
}

func (r *PgCalendarRepository) GetWorkingHours(ctx context.Context, doctorID uuid.UUID, day time.Weekday) (*WorkingHours, error) {
	var wh WorkingHours
	var weekday int
	err := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, day_of_week, is_available, start_time, end_time, break_start, break_end
		FROM working_hours
		WHERE doctor_id = $1 AND day_of_week = $2
	`, doctorID, int(day)).Scan(
		&wh.ID, &wh.DoctorID, &weekday, &wh.IsAvailable,
		&wh.StartTime, &wh.EndTime, &wh.BreakStart, &wh.BreakEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkingHoursNotFound
		}
		return nil, err
	}
	wh.DayOfWeek = time.Weekday(weekday)
	return &wh, nil
}

func (r *PgCalendarRepository) ListVacations(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]DoctorVacation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, start_date, end_date, reason
		FROM doctor_vacations
		WHERE doctor_id = $1
		  AND start_date < $3
		  AND end_date >= $2
		ORDER BY start_date
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorVacation
	for rows.Next() {
		var v DoctorVacation
		if err := rows.Scan(&v.ID, &v.DoctorID, &v.StartDate, &v.EndDate, &v.Reason); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *PgCalendarRepository) ListBlocks(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]ScheduleBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, start_time, end_time, all_day, reason
		FROM schedule_blocks
		WHERE doctor_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScheduleBlock
	for rows.Next() {
		var b ScheduleBlock
		if err := rows.Scan(&b.ID, &b.DoctorID, &b.StartTime, &b.EndTime, &b.AllDay, &b.Reason); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// PgDirectory verifies booking references against the directory tables.
type PgDirectory struct {
	pool *pgxpool.Pool
}

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func (d *PgDirectory) exists(ctx context.Context, table string, id uuid.UUID, notFound error) error {
	var found bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return fmt.Errorf("check %s existence: %w", table, err)
	}
	if !found {
		return notFound
	}
	return nil
}

func (d *PgDirectory) PatientExists(ctx context.Context, id uuid.UUID) error {
	return d.exists(ctx, "patients", id, ErrPatientNotFound)
}

func (d *PgDirectory) DoctorExists(ctx context.Context, id uuid.UUID) error {
	return d.exists(ctx, "doctors", id, ErrDoctorNotFound)
}

func (d *PgDirectory) RoomExists(ctx context.Context, id uuid.UUID) error {
	return d.exists(ctx, "rooms", id, ErrRoomNotFound)
}

// PgAuditLogger appends lifecycle entries to the append-only audit
// table.
type PgAuditLogger struct {
	pool *pgxpool.Pool
}

func NewPgAuditLogger(pool *pgxpool.Pool) *PgAuditLogger {
	return &PgAuditLogger{pool: pool}
}

func (l *PgAuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO appointment_audit (
			appointment_id, transition, from_status, to_status, actor_id, detail, occurred_at
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, COALESCE($7, now()))
	`, entry.AppointmentID, string(entry.Transition), string(entry.FromStatus),
		string(entry.ToStatus), entry.ActorID, entry.Detail, nullableTime(entry.OccurredAt))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
