package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/meesalavenugopal/novacare247/internal/config"
	"github.com/meesalavenugopal/novacare247/internal/notify"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,
		ClinicTimezone:  "Asia/Kolkata",
		UseMemoryQueue:  true,
		PublicRateLimit: 50,
		PublicRateBurst: 50,
		EmailFromName:   "NovaCare 24/7",
		SupportEmail:    "support@novacare247.com",
		SiteURL:         "https://novacare247.com",
	}
}

func newTestApp(t *testing.T, cfg *appconfig.Config) (*App, *prometheus.Registry) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	reg := prometheus.NewRegistry()
	app, err := New(context.Background(), Deps{
		Config:   cfg,
		Logger:   quietLogger(),
		DB:       mock,
		Registry: reg,
	})
	require.NoError(t, err)
	return app, reg
}

func TestNewRequiresSecretAndDatabase(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = New(context.Background(), Deps{Config: &appconfig.Config{}, DB: mock})
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = New(context.Background(), Deps{Config: testConfig()})
	assert.ErrorContains(t, err, "database")

	_, err = New(context.Background(), Deps{DB: mock})
	assert.ErrorContains(t, err, "config")
}

func TestAppServesWiredRoutes(t *testing.T) {
	app, _ := newTestApp(t, testConfig())
	require.NotNil(t, app.Limiter)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		app.Handler.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPost, "/uploads/presign", `{"folder":"licenses","filename":"license.pdf"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/admin/applications", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/bookings/today", "").Code)
}

func TestAppRunsInProcessWorker(t *testing.T) {
	app, reg := newTestApp(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	app.Start(ctx)

	app.Dispatcher.Dispatch(ctx, notify.Notification{
		Kind:    notify.KindBookingReceived,
		To:      "asha@example.com",
		Subject: "Booking Received",
		Text:    "We received your request.",
	})

	require.Eventually(t, func() bool {
		return notificationCount(t, reg, "sent") == 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, app.Shutdown())
}

func notificationCount(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != "novacare_notifications_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
