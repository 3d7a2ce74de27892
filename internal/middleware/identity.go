package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
	"github.com/rob0403/LiveVotingRW/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// VoterContextKey is the key for the per-request voter id
	VoterContextKey ContextKey = "voter_id"
	// PresenterContextKey marks requests carrying a valid presenter token
	PresenterContextKey ContextKey = "presenter"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

const voterCookieName = "lv_voter"

// VoterIdentity attaches a session-scoped voter id to every request. The
// id comes from the X-Voter-ID header or an issued cookie; first-time
// voters get a fresh id. This is identification, not authentication:
// the id only scopes votes and heartbeats.
func VoterIdentity(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			voterID := strings.TrimSpace(r.Header.Get("X-Voter-ID"))

			if voterID == "" {
				if cookie, err := r.Cookie(voterCookieName); err == nil {
					voterID = cookie.Value
				}
			}

			if voterID == "" || uuid.Validate(voterID) != nil {
				voterID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     voterCookieName,
					Value:    voterID,
					Path:     "/",
					MaxAge:   int((24 * time.Hour).Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), VoterContextKey, voterID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// VoterID extracts the voter id attached by VoterIdentity
func VoterID(r *http.Request) string {
	if id, ok := r.Context().Value(VoterContextKey).(string); ok {
		return id
	}
	return ""
}

// PresenterClaims is the expected shape of a presenter token
type PresenterClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Presenter gates presenter-only routes behind a bearer token carrying
// the presenter role. The core never authenticates users itself; the
// token is minted by the host application.
func Presenter(secret string, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, apperrors.NewAuthenticationError("Authorization header is required"), logger)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeErrorResponse(w, apperrors.NewAuthenticationError("Invalid authorization header format"), logger)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" {
				writeErrorResponse(w, apperrors.NewAuthenticationError("Token is required"), logger)
				return
			}

			claims := &PresenterClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.WithError(err).Warn("Presenter token validation failed")
				writeErrorResponse(w, apperrors.NewAuthenticationError("Invalid or expired token"), logger)
				return
			}
			if claims.Role != "presenter" {
				writeErrorResponse(w, apperrors.NewAuthenticationError("Presenter role required"), logger)
				return
			}

			ctx := context.WithValue(r.Context(), PresenterContextKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsPresenter reports whether the request passed the presenter gate
func IsPresenter(r *http.Request) bool {
	ok, _ := r.Context().Value(PresenterContextKey).(bool)
	return ok
}

// RequestID creates a middleware that adds a unique request ID to each request
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r)
		})
	}
}
