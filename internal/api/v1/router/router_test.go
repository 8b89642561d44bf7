package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"erpsaas/internal/config"
	"erpsaas/internal/middleware"
	"erpsaas/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler() http.Handler {
	cfg := &config.Config{
		AdminJWTSecret:     "test-secret",
		CORSAllowedOrigins: "http://localhost:8080",
	}
	svcs := &Services{
		Provisioning:  struct{ service.ProvisioningService }{},
		Subscriptions: struct{ service.SubscriptionService }{},
		Users:         struct{ service.UserService }{},
		Plans:         struct{ service.PlanService }{},
		Payments:      struct{ service.PaymentService }{},
		AdminSecrets:  struct{ service.AdminSecretService }{},
		ERP:           struct{ service.ERPService }{},
	}
	return Handler(cfg, svcs, zerolog.Nop())
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(testHandler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestHealthzReportsStoreFailure(t *testing.T) {
	h := healthz(func(context.Context) error { return errors.New("no primary") })
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRedirects(t *testing.T) {
	h := testHandler()

	rec := get(h, "/api/plans?active=1")
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/v1/plans?active=1", rec.Header().Get("Location"))

	rec = get(h, "/checkout/success?session_id=cs_1")
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/v1/checkout/success?session_id=cs_1", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, get(h, "/").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/v1/nope").Code)
}

func TestSwaggerDoc(t *testing.T) {
	rec := get(testHandler(), "/swagger/doc.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERP SaaS API")
	assert.Contains(t, rec.Body.String(), "/register")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := testHandler()
	for _, target := range []string{"/v1/subscriptions", "/v1/customers", "/v1/admin/secrets"} {
		rec := get(h, target)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestWebhookRouteDisabledWithoutSecret(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
