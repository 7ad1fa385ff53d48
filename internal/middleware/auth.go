package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/services"
	"github.com/vikasavnish/listinghub/internal/utils"
)

// BearerToken extracts the token from an Authorization header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Session resolves the bearer token, if any, into a session and viewer profile
// on the request context. A request without a token passes through signed out;
// a bad token is rejected.
func Session(auth services.AuthService, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			session, err := auth.GetSession(ctx, token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			viewer, err := auth.Profile(ctx, session)
			if err != nil {
				log.Warn(ctx, "profile lookup failed", "user_id", session.UserID, "err", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithSession(ctx, session, viewer)))
		})
	}
}

// RequireSession rejects signed-out requests. It must run after Session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if utils.SessionFromContext(r.Context()) == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Identify resolves a websocket upgrade request to a user id from the token
// query parameter or the Authorization header. Anonymous and invalid tokens
// map to uuid.Nil.
func Identify(auth services.AuthService) func(r *http.Request) uuid.UUID {
	return func(r *http.Request) uuid.UUID {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = BearerToken(r)
		}
		session, err := auth.GetSession(r.Context(), token)
		if err != nil || session == nil {
			return uuid.Nil
		}
		return session.UserID
	}
}
