package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"erpsaas/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, util.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	var gotSubject string
	h := AuthMiddleware("secret", zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = r.Context().Value(UserContextKey).(string)
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"not admin", "Bearer " + token(t, "user"), http.StatusForbidden},
		{"admin", "Bearer " + token(t, "admin"), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/customers", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusNoContent {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
	assert.Equal(t, "admin-1", gotSubject)
}

func TestLoggerMiddlewareSetsRequestID(t *testing.T) {
	h := LoggerMiddleware(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
