package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob0403/LiveVotingRW/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	return log
}

func voterEcho(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var captured string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = VoterID(r)
		w.WriteHeader(http.StatusOK)
	})
	return handler, &captured
}

func TestVoterIdentityFromHeader(t *testing.T) {
	inner, captured := voterEcho(t)
	handler := VoterIdentity(testLogger(t))(inner)

	voterID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Voter-ID", voterID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, voterID, *captured)
	assert.Empty(t, rec.Result().Cookies(), "known voters get no new cookie")
}

func TestVoterIdentityFromCookie(t *testing.T) {
	inner, captured := voterEcho(t)
	handler := VoterIdentity(testLogger(t))(inner)

	voterID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "lv_voter", Value: voterID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, voterID, *captured)
}

func TestVoterIdentityMintsNewID(t *testing.T) {
	inner, captured := voterEcho(t)
	handler := VoterIdentity(testLogger(t))(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NoError(t, uuid.Validate(*captured))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "lv_voter", cookies[0].Name)
	assert.Equal(t, *captured, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestVoterIdentityRejectsMalformedID(t *testing.T) {
	inner, captured := voterEcho(t)
	handler := VoterIdentity(testLogger(t))(inner)

	// A tampered header is replaced, never trusted.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Voter-ID", "'; DROP TABLE votes;--")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NoError(t, uuid.Validate(*captured))
	assert.NotEqual(t, "'; DROP TABLE votes;--", *captured)
}

func presenterToken(t *testing.T, secret, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := PresenterClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestPresenterGate(t *testing.T) {
	const secret = "test-secret"

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, IsPresenter(r))
		w.WriteHeader(http.StatusOK)
	})
	handler := Presenter(secret, testLogger(t))(inner)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "valid presenter token",
			authHeader: "Bearer " + presenterToken(t, secret, "presenter", time.Hour),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			authHeader: "Basic abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty token",
			authHeader: "Bearer ",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			authHeader: "Bearer " + presenterToken(t, "other-secret", "presenter", time.Hour),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			authHeader: "Bearer " + presenterToken(t, secret, "presenter", -time.Hour),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong role",
			authHeader: "Bearer " + presenterToken(t, secret, "voter", time.Hour),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(RequestIDContextKey).(string)
		assert.True(t, ok)
		assert.NotEmpty(t, id)
		w.WriteHeader(http.StatusOK)
	})
	handler := RequestID(testLogger(t))(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
