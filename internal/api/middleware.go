package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/gridlock-dev/gridlock/internal/store"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "gridlock_session"

type contextKey int

const (
	ctxSession contextKey = iota
	ctxUser
)

// sessionFrom returns the live session attached to the request, if any.
func sessionFrom(ctx context.Context) *store.Session {
	session, _ := ctx.Value(ctxSession).(*store.Session)
	return session
}

// userFrom returns the authenticated user attached to the request, if any.
func userFrom(ctx context.Context) *store.User {
	user, _ := ctx.Value(ctxUser).(*store.User)
	return user
}

// requestLogger logs one line per request with latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"latency_ms": time.Since(start).Milliseconds(),
			"remote_ip":  r.RemoteAddr,
		}).Info("request")
	})
}

// recoverer turns panics into structured 500 responses.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				s.internalError(w, r, fmt.Errorf("panic: %v", rvr))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware allows browser clients from other origins during
// development.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-CSRF-Token")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withSession resolves the session cookie, if present and unexpired, and
// attaches the session plus its user to the request context. Missing or
// stale cookies are not an error here; requireAuth decides that.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := s.db.GetSession(cookie.Value)
		if errors.Is(err, store.ErrNotFound) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		if time.Now().After(session.ExpiresAt) {
			// Stale row; drop it so the table does not accumulate.
			if err := s.db.DeleteSession(session.Token); err != nil {
				s.log.WithError(err).Warn("delete expired session")
			}
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.db.GetUser(session.UserID)
		if err != nil {
			s.internalError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxSession, session)
		ctx = context.WithValue(ctx, ctxUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests without a live session.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFrom(r.Context()) == nil {
			s.writeError(w, r, http.StatusUnauthorized, ErrTypeAuth, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireCSRF checks the session's CSRF token on mutating routes. The token
// is handed out on login and register; cookies alone never authorize a
// write.
func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r.Context())
		if session == nil || r.Header.Get("X-CSRF-Token") != session.CSRFToken {
			s.writeError(w, r, http.StatusForbidden, ErrTypeCSRF, "missing or invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
