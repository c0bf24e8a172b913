// Package bookings generates bookable slots from doctor templates and owns
// the consultation booking lifecycle.
package bookings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrSlotConflict      = errors.New("bookings: slot already booked")
	ErrDoctorNotFound    = errors.New("bookings: doctor not found")
	ErrDoctorUnavailable = errors.New("bookings: doctor is not available")
	ErrBookingNotFound   = errors.New("bookings: booking not found")
	ErrInvalidStatus     = errors.New("bookings: invalid status")
	ErrInvalidInput      = errors.New("bookings: invalid input")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Status is the booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// activeStatuses hold their slot. Mirrors the bookings_active_slot_key predicate.
var activeStatuses = []string{string(StatusPending), string(StatusConfirmed)}

// ParseStatus accepts the four lifecycle states, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidStatus, raw)
}

// ConsultationType is where the consultation happens.
type ConsultationType string

const (
	ConsultationClinic ConsultationType = "clinic"
	ConsultationHome   ConsultationType = "home"
	ConsultationVideo  ConsultationType = "video"
)

// ParseConsultationType defaults an empty value to a clinic visit.
func ParseConsultationType(raw string) (ConsultationType, error) {
	switch c := ConsultationType(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return ConsultationClinic, nil
	case ConsultationClinic, ConsultationHome, ConsultationVideo:
		return c, nil
	}
	return "", fmt.Errorf("%w: consultation_type must be clinic, home or video", ErrInvalidInput)
}

// DisplayName is the patient-facing label.
func (c ConsultationType) DisplayName() string {
	switch c {
	case ConsultationHome:
		return "Home Visit"
	case ConsultationVideo:
		return "Video Consultation"
	case ConsultationClinic:
		return "In-Clinic Visit"
	}
	return "Clinic Visit"
}

// Booking is a patient's reservation of one doctor slot. BookingDate is
// YYYY-MM-DD and BookingTime is HH:MM in the clinic timezone.
type Booking struct {
	ID                 int64            `json:"id"`
	PatientID          *int64           `json:"patient_id"`
	DoctorID           int64            `json:"doctor_id"`
	BookingDate        string           `json:"booking_date"`
	BookingTime        string           `json:"booking_time"`
	ConsultationType   ConsultationType `json:"consultation_type"`
	Status             Status           `json:"status"`
	PatientName        string           `json:"patient_name"`
	PatientPhone       string           `json:"patient_phone"`
	PatientEmail       string           `json:"patient_email"`
	Symptoms           string           `json:"symptoms"`
	Notes              string           `json:"notes"`
	CancellationReason string           `json:"cancellation_reason"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewBooking is the public booking request.
type NewBooking struct {
	DoctorID         int64  `json:"doctor_id"`
	BookingDate      string `json:"booking_date"`
	BookingTime      string `json:"booking_time"`
	ConsultationType string `json:"consultation_type"`
	PatientName      string `json:"patient_name"`
	PatientPhone     string `json:"patient_phone"`
	PatientEmail     string `json:"patient_email"`
	Symptoms         string `json:"symptoms"`
	PatientID        *int64 `json:"-"`
}

// request is a NewBooking after validation.
type request struct {
	NewBooking
	date        time.Time
	consultType ConsultationType
}

func (in NewBooking) normalize() (*request, error) {
	if in.DoctorID <= 0 {
		return nil, fmt.Errorf("%w: doctor_id is required", ErrInvalidInput)
	}
	date, err := time.Parse(dateLayout, strings.TrimSpace(in.BookingDate))
	if err != nil {
		return nil, fmt.Errorf("%w: booking_date must be YYYY-MM-DD", ErrInvalidInput)
	}
	clock, err := time.Parse(timeLayout, strings.TrimSpace(in.BookingTime))
	if err != nil {
		return nil, fmt.Errorf("%w: booking_time must be HH:MM", ErrInvalidInput)
	}
	ct, err := ParseConsultationType(in.ConsultationType)
	if err != nil {
		return nil, err
	}
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.PatientPhone = strings.TrimSpace(in.PatientPhone)
	if in.PatientName == "" {
		return nil, fmt.Errorf("%w: patient_name is required", ErrInvalidInput)
	}
	if in.PatientPhone == "" {
		return nil, fmt.Errorf("%w: patient_phone is required", ErrInvalidInput)
	}
	in.PatientEmail = strings.ToLower(strings.TrimSpace(in.PatientEmail))
	in.Symptoms = strings.TrimSpace(in.Symptoms)
	in.BookingDate = date.Format(dateLayout)
	in.BookingTime = clock.Format(timeLayout)
	in.ConsultationType = string(ct)
	return &request{NewBooking: in, date: date, consultType: ct}, nil
}

// Update changes a booking's status and staff fields. Nil fields are left as is.
type Update struct {
	Status             *string `json:"status"`
	Notes              *string `json:"notes"`
	CancellationReason *string `json:"cancellation_reason"`
}

// Filter narrows the admin booking list.
type Filter struct {
	Status string
	Skip   int
	Limit  int
}

const (
	defaultListLimit = 100
	maxListLimit     = 500
	phoneLookupLimit = 10
)

func (f Filter) normalize() (Filter, error) {
	if f.Status != "" {
		s, err := ParseStatus(f.Status)
		if err != nil {
			return f, err
		}
		f.Status = string(s)
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return f, nil
}

// DaySlots is the availability grid for one doctor on one date.
type DaySlots struct {
	Date  string          `json:"date"`
	Slots []AvailableSlot `json:"slots"`
}
