package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const slotSelect = `
SELECT id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), slot_duration, is_active
FROM doctor_slots`

func scanSlot(row pgx.Row) (*SlotTemplate, error) {
	var s SlotTemplate
	if err := row.Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.SlotDuration, &s.IsActive); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) listSlots(ctx context.Context, query string, args ...any) ([]SlotTemplate, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list slots: %w", err)
	}
	defer rows.Close()

	out := []SlotTemplate{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan slot: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ActiveTemplates returns a doctor's active templates for weekday (0=Monday).
func (r *Repository) ActiveTemplates(ctx context.Context, doctorID int64, weekday int) ([]SlotTemplate, error) {
	return r.listSlots(ctx, slotSelect+` WHERE doctor_id = $1 AND day_of_week = $2 AND is_active ORDER BY start_time, id`, doctorID, weekday)
}

// ListTemplates returns every template for a doctor.
func (r *Repository) ListTemplates(ctx context.Context, doctorID int64) ([]SlotTemplate, error) {
	return r.listSlots(ctx, slotSelect+` WHERE doctor_id = $1 ORDER BY day_of_week, start_time, id`, doctorID)
}

// CreateTemplate validates and inserts a template.
func (r *Repository) CreateTemplate(ctx context.Context, in SlotTemplate) (*SlotTemplate, error) {
	if in.SlotDuration == 0 {
		in.SlotDuration = 30
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s, err := scanSlot(r.q.QueryRow(ctx, `
		INSERT INTO doctor_slots (doctor_id, day_of_week, start_time, end_time, slot_duration, is_active)
		VALUES ($1, $2, $3::time, $4::time, $5, $6)
		RETURNING id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), slot_duration, is_active`,
		in.DoctorID, in.DayOfWeek, in.StartTime, in.EndTime, in.SlotDuration, in.IsActive))
	if err != nil {
		return nil, fmt.Errorf("catalog: create slot: %w", err)
	}
	return s, nil
}

// UpdateTemplate replaces the editable fields of a template.
func (r *Repository) UpdateTemplate(ctx context.Context, in SlotTemplate) (*SlotTemplate, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s, err := scanSlot(r.q.QueryRow(ctx, `
		UPDATE doctor_slots
		SET day_of_week = $2, start_time = $3::time, end_time = $4::time, slot_duration = $5, is_active = $6
		WHERE id = $1
		RETURNING id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), slot_duration, is_active`,
		in.ID, in.DayOfWeek, in.StartTime, in.EndTime, in.SlotDuration, in.IsActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: update slot: %w", err)
	}
	return s, nil
}

// DeleteTemplate removes a template. Existing bookings are unaffected.
func (r *Repository) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM doctor_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
