package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConflictDetector answers whether a candidate interval collides with an
// existing blocking appointment for a resource. One detector serves all
// three resource kinds; the repository applies the kind-specific filter
// column.
type ConflictDetector struct {
	appointments AppointmentRepository
}

func NewConflictDetector(appointments AppointmentRepository) *ConflictDetector {
	return &ConflictDetector{appointments: appointments}
}

// Check returns a *ConflictError when the resource already has a
// blocking appointment overlapping [start, end), and nil otherwise.
// excludeID skips the record being edited or rescheduled.
func (d *ConflictDetector) Check(ctx context.Context, res Resource, start, end time.Time, excludeID *uuid.UUID) error {
	existing, err := d.appointments.FindOverlapping(ctx, res, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("query overlapping appointments: %w", err)
	}
	for i := range existing {
		if Overlaps(start, end, existing[i].StartTime, existing[i].EndTime) {
			return &ConflictError{
				Resource:    res,
				Requested:   Interval{Start: start, End: end},
				Conflicting: existing[i].Interval(),
			}
		}
	}
	return nil
}

// CheckAll runs Check for every resource in order and returns the first
// conflict found. Doctor is checked before patient before room so the
// caller's error names the most actionable resource.
func (d *ConflictDetector) CheckAll(ctx context.Context, resources []Resource, start, end time.Time, excludeID *uuid.UUID) error {
	for _, res := range resources {
		if err := d.Check(ctx, res, start, end, excludeID); err != nil {
			return err
		}
	}
	return nil
}
