package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meesalavenugopal/novacare247/internal/accounts"
	"github.com/meesalavenugopal/novacare247/internal/bookings"
	httpmiddleware "github.com/meesalavenugopal/novacare247/internal/http/middleware"
	"github.com/meesalavenugopal/novacare247/internal/onboarding"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) http.Handler {
	t.Helper()
	logger := logging.NewWithWriter("error", io.Discard)
	return New(&Config{
		Logger:        logger,
		JWTSecret:     testSecret,
		PublicLimiter: limiter,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "# metrics")
		}),
		Onboarding: onboarding.NewHandler(nil, nil, nil, logger),
		Bookings:   bookings.NewHandler(nil, logger),
	})
}

func bearer(t *testing.T, role accounts.Role) string {
	t.Helper()
	token, _, err := accounts.NewTokenIssuer(testSecret, time.Hour).Issue(&accounts.User{ID: 3, Email: "staff@novacare.test", Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(h http.Handler, method, target, auth, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthEndpoint(t *testing.T) {
	rec := do(newTestRouter(t, nil), http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterMetricsEndpoint(t *testing.T) {
	rec := do(newTestRouter(t, nil), http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestRouterAdminRoutesRequireAdmin(t *testing.T) {
	router := newTestRouter(t, nil)
	paths := []string{"/admin/applications", "/admin/clinic-applications/dashboard", "/admin/bookings"}
	for _, p := range paths {
		assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, p, "", "").Code, p)
		assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, p, bearer(t, accounts.RoleDoctor), "").Code, p)
	}
	rec := do(router, http.MethodPost, "/admin/applications/x/verify", bearer(t, accounts.RoleAdmin), `{"approved":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterStaffBookingRoutes(t *testing.T) {
	router := newTestRouter(t, nil)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/bookings/today", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodPut, "/bookings/4", bearer(t, accounts.RolePatient), `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodPut, "/bookings/x", bearer(t, accounts.RoleDoctor), `{}`).Code)
}

func TestRouterThrottlesPublicWrites(t *testing.T) {
	router := newTestRouter(t, httpmiddleware.NewRateLimiter(0.0001, 1))

	first := do(router, http.MethodPost, "/onboarding/apply", "", "not json")
	assert.Equal(t, http.StatusBadRequest, first.Code)
	second := do(router, http.MethodPost, "/onboarding/apply", "", "not json")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	status := do(router, http.MethodGet, "/onboarding/apply/1/status", "", "")
	assert.Equal(t, http.StatusBadRequest, status.Code)
}

func TestRouterLeavesUnconfiguredRoutesUnmounted(t *testing.T) {
	router := newTestRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodPost, "/uploads/presign", "", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/doctors", "", "").Code)
}
