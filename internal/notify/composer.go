package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// BookingDetails is the booking data rendered into patient emails.
type BookingDetails struct {
	BookingID          int64
	PatientName        string
	PatientEmail       string
	DoctorName         string
	Specialization     string
	Date               string
	Time               string
	ConsultationType   string
	CancellationReason string
}

// OnboardingUpdate is the applicant-facing summary of a status change.
type OnboardingUpdate struct {
	Workflow      string
	ApplicationID int64
	ApplicantName string
	Email         string
	Status        string
	StageName     string
	Description   string
	Notes         string
}

// Composer renders notification bodies.
type Composer struct {
	brand        string
	supportEmail string
	siteURL      string
	tmpl         *template.Template
}

func NewComposer(brand, supportEmail, siteURL string) *Composer {
	if brand == "" {
		brand = DefaultFromName
	}
	return &Composer{
		brand:        brand,
		supportEmail: supportEmail,
		siteURL:      strings.TrimRight(siteURL, "/"),
		tmpl:         template.Must(template.New("emails").Parse(emailTemplates)),
	}
}

func (c *Composer) BookingReceived(b BookingDetails) (Notification, error) {
	return c.booking(KindBookingReceived, "booking_received",
		fmt.Sprintf("Booking Received - Appointment with Dr. %s", b.DoctorName),
		fmt.Sprintf("Hi %s, we received your request for %s at %s with Dr. %s (booking #%d). We will confirm shortly.",
			b.PatientName, b.Date, b.Time, b.DoctorName, b.BookingID), b)
}

func (c *Composer) BookingConfirmed(b BookingDetails) (Notification, error) {
	return c.booking(KindBookingConfirmed, "booking_confirmed",
		fmt.Sprintf("Booking Confirmed - Appointment with Dr. %s", b.DoctorName),
		fmt.Sprintf("Hi %s, your %s appointment with Dr. %s on %s at %s is confirmed (booking #%d).",
			b.PatientName, b.ConsultationType, b.DoctorName, b.Date, b.Time, b.BookingID), b)
}

func (c *Composer) BookingCompleted(b BookingDetails) (Notification, error) {
	return c.booking(KindBookingCompleted, "booking_completed",
		fmt.Sprintf("How was your session? - %s", c.brand),
		fmt.Sprintf("Hi %s, thank you for your session with Dr. %s on %s. We would love your feedback.",
			b.PatientName, b.DoctorName, b.Date), b)
}

func (c *Composer) BookingCancelled(b BookingDetails) (Notification, error) {
	text := fmt.Sprintf("Hi %s, your appointment with Dr. %s on %s at %s has been cancelled.",
		b.PatientName, b.DoctorName, b.Date, b.Time)
	if b.CancellationReason != "" {
		text += " Reason: " + b.CancellationReason
	}
	return c.booking(KindBookingCancelled, "booking_cancelled",
		fmt.Sprintf("Appointment Cancelled - %s", c.brand), text, b)
}

func (c *Composer) booking(kind Kind, tmpl, subject, text string, b BookingDetails) (Notification, error) {
	html, err := c.render(tmpl, map[string]any{
		"Brand":        c.brand,
		"Booking":      b,
		"SupportEmail": c.supportEmail,
		"FeedbackURL":  fmt.Sprintf("%s/feedback/%d", c.siteURL, b.BookingID),
	})
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		Kind:    kind,
		To:      b.PatientEmail,
		ToName:  b.PatientName,
		Subject: subject,
		Text:    text,
		HTML:    html,
	}, nil
}

// OnboardingStatus renders the applicant email for a status change.
func (c *Composer) OnboardingStatus(u OnboardingUpdate) (Notification, error) {
	stage := u.StageName
	if stage == "" {
		stage = strings.ReplaceAll(u.Status, "_", " ")
	}
	html, err := c.render("onboarding_status", map[string]any{
		"Brand":        c.brand,
		"Update":       u,
		"Stage":        stage,
		"SupportEmail": c.supportEmail,
	})
	if err != nil {
		return Notification{}, err
	}
	text := fmt.Sprintf("Hi %s, your %s application #%d is now at stage: %s. %s",
		u.ApplicantName, u.Workflow, u.ApplicationID, stage, u.Description)
	if u.Notes != "" {
		text += " Notes: " + u.Notes
	}
	return Notification{
		Kind:    KindOnboardingUpdate,
		To:      u.Email,
		ToName:  u.ApplicantName,
		Subject: fmt.Sprintf("Application Update: %s - %s", stage, c.brand),
		Text:    strings.TrimSpace(text),
		HTML:    html,
	}, nil
}

func (c *Composer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return buf.String(), nil
}

const emailTemplates = `
{{define "footer"}}<p style="color:#666;font-size:12px">{{.Brand}}{{if .SupportEmail}} | {{.SupportEmail}}{{end}}</p>{{end}}

{{define "booking_received"}}<h2>We received your booking</h2>
<p>Hi {{.Booking.PatientName}},</p>
<p>Your request for a {{.Booking.ConsultationType}} appointment with Dr. {{.Booking.DoctorName}} on <strong>{{.Booking.Date}}</strong> at <strong>{{.Booking.Time}}</strong> is pending confirmation.</p>
<p>Booking reference: #{{.Booking.BookingID}}</p>
{{template "footer" .}}{{end}}

{{define "booking_confirmed"}}<h2>Your appointment is confirmed</h2>
<p>Hi {{.Booking.PatientName}},</p>
<p>Dr. {{.Booking.DoctorName}}{{if .Booking.Specialization}} ({{.Booking.Specialization}}){{end}} will see you on <strong>{{.Booking.Date}}</strong> at <strong>{{.Booking.Time}}</strong>.</p>
<p>Consultation: {{.Booking.ConsultationType}}. Booking reference: #{{.Booking.BookingID}}</p>
{{template "footer" .}}{{end}}

{{define "booking_completed"}}<h2>How was your session?</h2>
<p>Hi {{.Booking.PatientName}},</p>
<p>Thank you for visiting Dr. {{.Booking.DoctorName}} on {{.Booking.Date}}.</p>
<p><a href="{{.FeedbackURL}}">Share your feedback</a></p>
{{template "footer" .}}{{end}}

{{define "booking_cancelled"}}<h2>Appointment cancelled</h2>
<p>Hi {{.Booking.PatientName}},</p>
<p>Your appointment with Dr. {{.Booking.DoctorName}} on {{.Booking.Date}} at {{.Booking.Time}} has been cancelled.</p>
{{if .Booking.CancellationReason}}<p>Reason: {{.Booking.CancellationReason}}</p>{{end}}
{{template "footer" .}}{{end}}

{{define "onboarding_status"}}<h2>Application update</h2>
<p>Hi {{.Update.ApplicantName}},</p>
<p>Your {{.Update.Workflow}} application #{{.Update.ApplicationID}} has moved to <strong>{{.Stage}}</strong>.</p>
{{if .Update.Description}}<p>{{.Update.Description}}</p>{{end}}
{{if .Update.Notes}}<p>Notes: {{.Update.Notes}}</p>{{end}}
{{template "footer" .}}{{end}}
`
