package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meesalavenugopal/novacare247/internal/db"
)

// ActiveSlotIndex is the partial unique index holding one live booking per doctor slot.
const ActiveSlotIndex = "bookings_active_slot_key"

// Repository provides persistence helpers for bookings.
type Repository struct {
	q db.Querier
}

// NewRepository creates a repository backed by q, usually the pgx pool.
func NewRepository(q db.Querier) *Repository {
	if q == nil {
		panic("bookings: querier required")
	}
	return &Repository{q: q}
}

const bookingColumns = `id, patient_id, doctor_id, to_char(booking_date, 'YYYY-MM-DD'), to_char(booking_time, 'HH24:MI'),
       consultation_type, status, patient_name, patient_phone, patient_email, symptoms, notes,
       cancellation_reason, created_at, updated_at`

const bookingSelect = `SELECT ` + bookingColumns + ` FROM bookings`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.PatientID, &b.DoctorID, &b.BookingDate, &b.BookingTime,
		&b.ConsultationType, &b.Status, &b.PatientName, &b.PatientPhone, &b.PatientEmail, &b.Symptoms, &b.Notes,
		&b.CancellationReason, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) list(ctx context.Context, op, query string, args ...any) ([]Booking, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: %s: %w", op, err)
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: %s: scan: %w", op, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: %s: %w", op, err)
	}
	return out, nil
}

// TakenTimes returns the HH:MM start times held by pending or confirmed bookings.
func (r *Repository) TakenTimes(ctx context.Context, doctorID int64, date string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT to_char(booking_time, 'HH24:MI') FROM bookings
		WHERE doctor_id = $1 AND booking_date = $2::date AND status = ANY($3)`,
		doctorID, date, activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("bookings: taken times: %w", err)
	}
	defer rows.Close()

	taken := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("bookings: taken times: scan: %w", err)
		}
		taken = append(taken, t)
	}
	return taken, rows.Err()
}

// Insert stores a pending booking. A live booking on the same slot yields ErrSlotConflict.
func (r *Repository) Insert(ctx context.Context, in *request) (*Booking, error) {
	b, err := scanBooking(r.q.QueryRow(ctx, `
		INSERT INTO bookings (patient_id, doctor_id, booking_date, booking_time, consultation_type, status,
		                      patient_name, patient_phone, patient_email, symptoms)
		VALUES ($1, $2, $3::date, $4::time, $5, $6, $7, $8, $9, $10)
		RETURNING `+bookingColumns,
		in.PatientID, in.DoctorID, in.BookingDate, in.BookingTime, string(in.consultType), string(StatusPending),
		in.PatientName, in.PatientPhone, in.PatientEmail, in.Symptoms))
	if db.IsUniqueViolation(err, ActiveSlotIndex) {
		return nil, ErrSlotConflict
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: insert: %w", err)
	}
	return b, nil
}

// Get loads a booking by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Booking, error) {
	b, err := scanBooking(r.q.QueryRow(ctx, bookingSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	return b, nil
}

// Update applies the non-nil fields and returns the previous status with the updated row.
// Reviving a booking into an active status can collide with the slot index.
func (r *Repository) Update(ctx context.Context, id int64, status *Status, notes, reason *string) (Status, *Booking, error) {
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}
	var prev Status
	var b Booking
	err := r.q.QueryRow(ctx, `
		UPDATE bookings b
		SET status = COALESCE($2::text, b.status),
		    notes = COALESCE($3::text, b.notes),
		    cancellation_reason = COALESCE($4::text, b.cancellation_reason),
		    updated_at = now()
		FROM (SELECT id, status FROM bookings WHERE id = $1 FOR UPDATE) prev
		WHERE b.id = prev.id
		RETURNING prev.status, b.id, b.patient_id, b.doctor_id, to_char(b.booking_date, 'YYYY-MM-DD'),
		          to_char(b.booking_time, 'HH24:MI'), b.consultation_type, b.status, b.patient_name, b.patient_phone,
		          b.patient_email, b.symptoms, b.notes, b.cancellation_reason, b.created_at, b.updated_at`,
		id, statusArg, notes, reason).Scan(&prev, &b.ID, &b.PatientID, &b.DoctorID, &b.BookingDate,
		&b.BookingTime, &b.ConsultationType, &b.Status, &b.PatientName, &b.PatientPhone,
		&b.PatientEmail, &b.Symptoms, &b.Notes, &b.CancellationReason, &b.CreatedAt, &b.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "", nil, ErrBookingNotFound
	case db.IsUniqueViolation(err, ActiveSlotIndex):
		return "", nil, ErrSlotConflict
	case err != nil:
		return "", nil, fmt.Errorf("bookings: update: %w", err)
	}
	return prev, &b, nil
}

// List returns bookings newest date first, earliest time first within a date.
func (r *Repository) List(ctx context.Context, f Filter) ([]Booking, error) {
	return r.list(ctx, "list", bookingSelect+`
		WHERE ($1 = '' OR status = $1)
		ORDER BY booking_date DESC, booking_time, id
		OFFSET $2 LIMIT $3`, f.Status, f.Skip, f.Limit)
}

// ListForDoctor returns a doctor's bookings between from and to inclusive.
// Empty bounds are open.
func (r *Repository) ListForDoctor(ctx context.Context, doctorID int64, from, to string) ([]Booking, error) {
	return r.list(ctx, "list for doctor", bookingSelect+`
		WHERE doctor_id = $1
		  AND ($2 = '' OR booking_date >= $2::date)
		  AND ($3 = '' OR booking_date <= $3::date)
		ORDER BY booking_date, booking_time, id`, doctorID, from, to)
}

// ListForDate returns every booking on date, optionally for one doctor.
func (r *Repository) ListForDate(ctx context.Context, date string, doctorID *int64) ([]Booking, error) {
	return r.list(ctx, "list for date", bookingSelect+`
		WHERE booking_date = $1::date AND ($2::bigint IS NULL OR doctor_id = $2)
		ORDER BY booking_time, id`, date, doctorID)
}

// ListByPhone returns the most recent bookings made with phone.
func (r *Repository) ListByPhone(ctx context.Context, phone string, limit int) ([]Booking, error) {
	return r.list(ctx, "list by phone", bookingSelect+`
		WHERE patient_phone = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, phone, limit)
}
