package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meesalavenugopal/novacare247/internal/accounts"
	"github.com/meesalavenugopal/novacare247/internal/bookings"
	"github.com/meesalavenugopal/novacare247/internal/catalog"
	"github.com/meesalavenugopal/novacare247/internal/documents"
	httpmiddleware "github.com/meesalavenugopal/novacare247/internal/http/middleware"
	"github.com/meesalavenugopal/novacare247/internal/http/render"
	"github.com/meesalavenugopal/novacare247/internal/onboarding"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes unmounted.
type Config struct {
	Logger             *logging.Logger
	JWTSecret          string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
	// PublicLimiter throttles anonymous write endpoints per client IP.
	PublicLimiter *httpmiddleware.RateLimiter

	Accounts   *accounts.Handler
	Onboarding *onboarding.Handler
	Catalog    *catalog.Handler
	Bookings   *bookings.Handler
	Documents  *documents.Handler
}

func health(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.PublicLimiter != nil {
		throttle = httpmiddleware.RateLimit(cfg.PublicLimiter)
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Accounts != nil {
			public.With(throttle).Post("/auth/login", cfg.Accounts.Login)
		}
		if cfg.Catalog != nil {
			public.Get("/doctors", cfg.Catalog.ListDoctors)
			public.Get("/doctors/{slug}", cfg.Catalog.GetDoctor)
			public.Get("/branches", cfg.Catalog.ListBranches)
			public.Get("/training-modules", cfg.Catalog.ListTrainingModules)
		}
		if h := cfg.Onboarding; h != nil {
			public.Route("/onboarding", func(r chi.Router) {
				r.With(throttle).Post("/apply", h.CreateDoctorApplication)
				r.Put("/apply/{id}", h.UpdateDoctorApplication)
				r.Post("/apply/{id}/submit", h.SubmitDoctorApplication)
				r.Get("/apply/{id}/status", h.DoctorApplicationStatus)

				r.With(throttle).Post("/clinic/apply", h.CreateClinicApplication)
				r.Put("/clinic/apply/{id}", h.UpdateClinicApplication)
				r.Post("/clinic/apply/{id}/submit", h.SubmitClinicApplication)
				r.Get("/clinic/apply/{id}/status", h.ClinicApplicationStatus)
			})
		}
		if h := cfg.Bookings; h != nil {
			public.Get("/bookings/available-slots/{doctorID}/{date}", h.AvailableSlots)
			public.With(throttle, httpmiddleware.OptionalClaims(cfg.JWTSecret)).Post("/bookings", h.Create)
			public.Get("/bookings/check/{phone}", h.LookupByPhone)
			public.Get("/bookings/{id}", h.Get)
			public.Delete("/bookings/{id}", h.Cancel)
		}
		if cfg.Documents != nil {
			public.With(throttle).Post("/uploads/presign", cfg.Documents.Presign)
		}
	})

	// Staff booking views (doctor or admin)
	if h := cfg.Bookings; h != nil {
		r.Group(func(staff chi.Router) {
			staff.Use(httpmiddleware.RequireRoles(cfg.JWTSecret, accounts.RoleDoctor, accounts.RoleAdmin))
			staff.Put("/bookings/{id}", h.Update)
			staff.Get("/bookings/today", h.Today)
			staff.Get("/bookings/doctor/{doctorID}", h.ListForDoctor)
		})
	}

	// Admin routes (HS256 JWT, role admin)
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.RequireRoles(cfg.JWTSecret, accounts.RoleAdmin))

		if h := cfg.Onboarding; h != nil {
			admin.Route("/applications", func(r chi.Router) {
				r.Get("/", h.ListDoctorApplications)
				r.Get("/dashboard", h.DoctorDashboard)
				r.Get("/by-doctor/{doctorID}", h.GetDoctorApplicationByDoctor)
				r.Route("/{id}", func(app chi.Router) {
					app.Get("/", h.GetDoctorApplication)
					app.Get("/logs", h.DoctorApplicationLogs)
					app.Post("/ai-verify", h.RunDoctorAdvisory)
					app.Post("/verify", h.VerifyDoctor)
					app.Post("/generate-questions", h.GenerateInterviewQuestions)
					app.Post("/schedule-interview", h.ScheduleInterview)
					app.Post("/complete-interview", h.CompleteInterview)
					app.Post("/start-training", h.StartTraining)
					app.Post("/complete-training", h.CompleteDoctorTraining)
					app.Post("/activate", h.ActivateDoctor)
					app.Post("/reject", h.RejectDoctor)
					app.Post("/suspend", h.SuspendDoctor)
				})
			})
			admin.Route("/clinic-applications", func(r chi.Router) {
				r.Get("/", h.ListClinicApplications)
				r.Get("/dashboard", h.ClinicDashboard)
				r.Get("/by-branch/{branchID}", h.GetClinicApplicationByBranch)
				r.Route("/{id}", func(app chi.Router) {
					app.Get("/", h.GetClinicApplication)
					app.Get("/logs", h.ClinicApplicationLogs)
					app.Post("/ai-review", h.RunClinicAdvisory)
					app.Post("/verify-documentation", h.VerifyClinicDocuments)
					app.Post("/schedule-site-verification", h.ScheduleSiteVisit)
					app.Post("/complete-site-verification", h.CompleteSiteVisit)
					app.Post("/sign-contract", h.SignContract)
					app.Post("/complete-setup", h.CompleteSetup)
					app.Post("/schedule-training", h.ScheduleClinicTraining)
					app.Post("/complete-training", h.CompleteClinicTraining)
					app.Post("/activate", h.ActivateClinic)
					app.Post("/reject", h.RejectClinic)
					app.Post("/suspend", h.SuspendClinic)
				})
			})
		}

		if cfg.Bookings != nil {
			admin.Get("/bookings", cfg.Bookings.List)
		}

		if h := cfg.Catalog; h != nil {
			admin.Get("/training-modules", h.AdminListTrainingModules)
			admin.Post("/training-modules", h.CreateTrainingModule)
			admin.Post("/training-modules/generate", h.GenerateTrainingModule)
			admin.Get("/doctors/{doctorID}/slots", h.ListSlots)
			admin.Post("/doctors/{doctorID}/slots", h.CreateSlot)
			admin.Put("/slots/{id}", h.UpdateSlot)
			admin.Delete("/slots/{id}", h.DeleteSlot)
		}
	})

	return r
}
