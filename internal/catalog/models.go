// Package catalog holds the doctor, branch, slot template and training module
// records that onboarding provisions and bookings read.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("catalog: not found")
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// Doctor is a bookable practitioner profile. FullName and Email come from the linked user.
type Doctor struct {
	ID                      int64     `json:"id"`
	UserID                  int64     `json:"user_id"`
	BranchID                *int64    `json:"branch_id"`
	Slug                    string    `json:"slug"`
	FullName                string    `json:"full_name"`
	Email                   string    `json:"email,omitempty"`
	Specialization          string    `json:"specialization"`
	Qualification           string    `json:"qualification"`
	ExperienceYears         int       `json:"experience_years"`
	Bio                     string    `json:"bio"`
	Expertise               []string  `json:"expertise"`
	ConsultationFee         int       `json:"consultation_fee"`
	ProfileImage            string    `json:"profile_image"`
	IsAvailable             bool      `json:"is_available"`
	OnboardingApplicationID *int64    `json:"onboarding_application_id,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}

// Branch is a clinic location.
type Branch struct {
	ID                      int64     `json:"id"`
	Name                    string    `json:"name"`
	Slug                    string    `json:"slug"`
	Country                 string    `json:"country"`
	State                   string    `json:"state"`
	City                    string    `json:"city"`
	Address                 string    `json:"address"`
	Pincode                 string    `json:"pincode"`
	Phone                   string    `json:"phone"`
	Email                   string    `json:"email"`
	Latitude                string    `json:"latitude"`
	Longitude               string    `json:"longitude"`
	BusinessHours           string    `json:"business_hours"`
	IsActive                bool      `json:"is_active"`
	IsHeadquarters          bool      `json:"is_headquarters"`
	OnboardingApplicationID *int64    `json:"onboarding_application_id,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
}

// SlotTemplate is a recurring weekly availability window. DayOfWeek is 0 for Monday.
// Times are "HH:MM".
type SlotTemplate struct {
	ID           int64  `json:"id"`
	DoctorID     int64  `json:"doctor_id"`
	DayOfWeek    int    `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SlotDuration int    `json:"slot_duration"`
	IsActive     bool   `json:"is_active"`
}

// Validate checks template bounds.
func (s SlotTemplate) Validate() error {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return fmt.Errorf("%w: day_of_week must be 0-6", ErrInvalidInput)
	}
	start, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start_time must be HH:MM", ErrInvalidInput)
	}
	end, err := time.Parse("15:04", s.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end_time must be HH:MM", ErrInvalidInput)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start_time must be before end_time", ErrInvalidInput)
	}
	if s.SlotDuration <= 0 {
		return fmt.Errorf("%w: slot_duration must be positive", ErrInvalidInput)
	}
	return nil
}

// QuizQuestion is one multiple-choice question on a training module.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// TrainingModule is onboarding training content.
type TrainingModule struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Content         string         `json:"content"`
	VideoURL        string         `json:"video_url"`
	DurationMinutes int            `json:"duration_minutes"`
	DisplayOrder    int            `json:"display_order"`
	IsMandatory     bool           `json:"is_mandatory"`
	IsActive        bool           `json:"is_active"`
	Quiz            []QuizQuestion `json:"quiz_questions"`
	PassingScore    int            `json:"passing_score"`
	CreatedAt       time.Time      `json:"created_at"`
}

// decodeList decodes a JSONB array, degrading to an empty slice on bad data.
func decodeList[T any](raw []byte) []T {
	out := []T{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return []T{}
	}
	return out
}

func encodeList[T any](items []T) string {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
