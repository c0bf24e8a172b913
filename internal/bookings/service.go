package bookings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/meesalavenugopal/novacare247/internal/catalog"
	"github.com/meesalavenugopal/novacare247/internal/locks"
	"github.com/meesalavenugopal/novacare247/internal/notify"
	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

var bookingsTracer = otel.Tracer("novacare.internal.bookings")

const defaultSpecialization = "Physiotherapy"

// DoctorDirectory is the catalog read surface bookings depends on.
type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id int64) (*catalog.Doctor, error)
	FindDoctorByUserID(ctx context.Context, userID int64) (*catalog.Doctor, error)
	ActiveTemplates(ctx context.Context, doctorID int64, weekday int) ([]catalog.SlotTemplate, error)
}

// Service creates and manages bookings.
type Service struct {
	repo       *Repository
	doctors    DoctorDirectory
	locker     locks.Locker
	dispatcher *notify.Dispatcher
	composer   *notify.Composer
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
	loc        *time.Location
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifications sends patient emails through d, rendered by c.
func WithNotifications(d *notify.Dispatcher, c *notify.Composer) Option {
	return func(s *Service) { s.dispatcher, s.composer = d, c }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the clinic timezone used for "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a bookings service. A nil locker falls back to an in-process one.
func NewService(repo *Repository, doctors DoctorDirectory, locker locks.Locker, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if doctors == nil {
		panic("bookings: doctor directory required")
	}
	if locker == nil {
		locker = locks.NewLocalLocker()
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:    repo,
		doctors: doctors,
		locker:  locker,
		logger:  logger.Component("bookings"),
		loc:     time.UTC,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) doctor(ctx context.Context, id int64) (*catalog.Doctor, error) {
	d, err := s.doctors.GetDoctor(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: load doctor: %w", err)
	}
	return d, nil
}

// AvailableSlots returns the availability grid for doctorID on date (YYYY-MM-DD).
func (s *Service) AvailableSlots(ctx context.Context, doctorID int64, date string) (*DaySlots, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.available_slots")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("novacare.doctor_id", doctorID),
		attribute.String("novacare.booking_date", date),
	)

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	if _, err := s.doctor(ctx, doctorID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	templates, err := s.doctors.ActiveTemplates(ctx, doctorID, Weekday(day))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bookings: load templates: %w", err)
	}
	iso := day.Format(dateLayout)
	taken, err := s.repo.TakenTimes(ctx, doctorID, iso)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &DaySlots{Date: iso, Slots: GenerateSlots(templates, taken, day, s.today())}, nil
}

func slotKey(doctorID int64, date, clock string) string {
	return fmt.Sprintf("booking:%d:%s:%s", doctorID, date, clock)
}

// Create books a pending slot. The slot lock serializes concurrent attempts
// on the same doctor, date and time; the partial unique index backs it up.
func (s *Service) Create(ctx context.Context, in NewBooking) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()

	req, err := in.normalize()
	if err != nil {
		s.metrics.ObserveCreate("invalid")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("novacare.doctor_id", req.DoctorID),
		attribute.String("novacare.booking_date", req.BookingDate),
		attribute.String("novacare.booking_time", req.BookingTime),
	)

	doc, err := s.doctor(ctx, req.DoctorID)
	if err != nil {
		s.metrics.ObserveCreate("invalid")
		span.RecordError(err)
		return nil, err
	}
	if !doc.IsAvailable {
		s.metrics.ObserveCreate("doctor_unavailable")
		return nil, ErrDoctorUnavailable
	}

	var created *Booking
	err = s.locker.WithLock(ctx, slotKey(req.DoctorID, req.BookingDate, req.BookingTime), func(ctx context.Context) error {
		taken, err := s.repo.TakenTimes(ctx, req.DoctorID, req.BookingDate)
		if err != nil {
			return err
		}
		if slices.Contains(taken, req.BookingTime) {
			return ErrSlotConflict
		}
		created, err = s.repo.Insert(ctx, req)
		return err
	})
	if errors.Is(err, locks.ErrLockNotAcquired) {
		err = ErrSlotConflict
	}
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveCreate("conflict")
			return nil, err
		}
		span.SetStatus(codes.Error, "create booking")
		s.metrics.ObserveCreate("error")
		return nil, err
	}

	s.metrics.ObserveCreate("created")
	s.logger.Info("booking created", "booking_id", created.ID, "doctor_id", created.DoctorID,
		"date", created.BookingDate, "time", created.BookingTime)
	s.notify(ctx, created, doc)
	return created, nil
}

// UpdateStatus applies a staff update. Patients are emailed when the status changes
// to confirmed, completed or cancelled.
func (s *Service) UpdateStatus(ctx context.Context, id int64, u Update) (*Booking, error) {
	var status *Status
	if u.Status != nil {
		parsed, err := ParseStatus(*u.Status)
		if err != nil {
			return nil, err
		}
		status = &parsed
	}
	prev, b, err := s.repo.Update(ctx, id, status, u.Notes, u.CancellationReason)
	if err != nil {
		return nil, err
	}
	if prev != b.Status {
		s.metrics.ObserveStatusChange(string(b.Status))
		s.logger.Info("booking status changed", "booking_id", b.ID, "from", prev, "to", b.Status)
		if doc, err := s.doctors.GetDoctor(ctx, b.DoctorID); err == nil {
			s.notify(ctx, b, doc)
		} else {
			s.logger.Warn("booking email skipped", "booking_id", b.ID, "error", err)
		}
	}
	return b, nil
}

// Cancel marks a booking cancelled, freeing its slot.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (*Booking, error) {
	status := string(StatusCancelled)
	u := Update{Status: &status}
	if reason = strings.TrimSpace(reason); reason != "" {
		u.CancellationReason = &reason
	}
	return s.UpdateStatus(ctx, id, u)
}

func (s *Service) Get(ctx context.Context, id int64) (*Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Booking, error) {
	f, err := f.normalize()
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f)
}

// ListForDoctor returns a doctor's bookings in the optional inclusive date range.
func (s *Service) ListForDoctor(ctx context.Context, doctorID int64, from, to string) ([]Booking, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("%w: dates must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	return s.repo.ListForDoctor(ctx, doctorID, from, to)
}

// Today lists bookings on the current clinic date, for one doctor when doctorID is set.
func (s *Service) Today(ctx context.Context, doctorID *int64) ([]Booking, error) {
	return s.repo.ListForDate(ctx, s.today().Format(dateLayout), doctorID)
}

// DoctorForUser resolves the doctor profile linked to a user account.
func (s *Service) DoctorForUser(ctx context.Context, userID int64) (*catalog.Doctor, error) {
	d, err := s.doctors.FindDoctorByUserID(ctx, userID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	return d, err
}

// LookupByPhone returns the latest bookings made with phone.
func (s *Service) LookupByPhone(ctx context.Context, phone string) ([]Booking, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}
	return s.repo.ListByPhone(ctx, phone, phoneLookupLimit)
}

func (s *Service) notify(ctx context.Context, b *Booking, doc *catalog.Doctor) {
	if s.dispatcher == nil || s.composer == nil || b.PatientEmail == "" {
		return
	}
	details := bookingDetails(b, doc)
	var (
		n   notify.Notification
		err error
	)
	switch b.Status {
	case StatusPending:
		n, err = s.composer.BookingReceived(details)
	case StatusConfirmed:
		n, err = s.composer.BookingConfirmed(details)
	case StatusCompleted:
		n, err = s.composer.BookingCompleted(details)
	case StatusCancelled:
		n, err = s.composer.BookingCancelled(details)
	default:
		return
	}
	if err != nil {
		s.logger.Error("booking email render failed", "booking_id", b.ID, "status", b.Status, "error", err)
		return
	}
	s.dispatcher.Dispatch(ctx, n)
}

func bookingDetails(b *Booking, doc *catalog.Doctor) notify.BookingDetails {
	details := notify.BookingDetails{
		BookingID:          b.ID,
		PatientName:        b.PatientName,
		PatientEmail:       b.PatientEmail,
		DoctorName:         doc.FullName,
		Specialization:     doc.Specialization,
		Date:               b.BookingDate,
		Time:               b.BookingTime,
		ConsultationType:   b.ConsultationType.DisplayName(),
		CancellationReason: b.CancellationReason,
	}
	if details.Specialization == "" {
		details.Specialization = defaultSpecialization
	}
	if d, err := time.Parse(dateLayout, b.BookingDate); err == nil {
		details.Date = d.Format("January 02, 2006")
	}
	if t, err := time.Parse(timeLayout, b.BookingTime); err == nil {
		details.Time = t.Format("03:04 PM")
	}
	return details
}
