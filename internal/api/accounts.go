package api

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gridlock-dev/gridlock/internal/auth"
	"github.com/gridlock-dev/gridlock/internal/store"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

const minPasswordLen = 8

// CredentialsRequest carries a register or login attempt
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is returned on register, login and me. The CSRF token must
// be echoed in X-CSRF-Token on every mutating request.
type SessionResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	CSRFToken string `json:"csrf_token"`
}

// ValidateCredentials checks the register input rules.
func ValidateCredentials(req *CredentialsRequest) error {
	if !usernameRe.MatchString(req.Username) {
		return errors.New("username must be 3-32 characters of a-z, 0-9 or _")
	}
	if len(req.Password) < minPasswordLen {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// startSession creates a session row and sets the cookie.
func (s *Server) startSession(w http.ResponseWriter, user *store.User) (*store.Session, error) {
	session := &store.Session{
		Token:     auth.NewToken(),
		UserID:    user.ID,
		CSRFToken: auth.NewToken(),
		ExpiresAt: time.Now().UTC().Add(s.sessionTTL),
	}
	if err := s.db.CreateSession(session); err != nil {
		return nil, err
	}
	s.setSessionCookie(w, session.Token, session.ExpiresAt)
	return session, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}
	if err := ValidateCredentials(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	user := &store.User{Username: req.Username, PasswordHash: hash}
	if err := s.db.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.writeError(w, r, http.StatusConflict, ErrTypeConflict, "username is taken")
			return
		}
		s.internalError(w, r, err)
		return
	}

	session, err := s.startSession(w, user)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.log.WithField("user_id", user.ID).Info("user_registered")
	s.writeJSON(w, http.StatusCreated, SessionResponse{
		UserID:    user.ID,
		Username:  user.Username,
		CSRFToken: session.CSRFToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}

	// One failure shape for unknown user and wrong password.
	user, err := s.db.GetUserByName(req.Username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		s.writeError(w, r, http.StatusUnauthorized, ErrTypeAuth, "invalid credentials")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	session, err := s.startSession(w, user)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.log.WithField("user_id", user.ID).Info("user_login")
	s.writeJSON(w, http.StatusOK, SessionResponse{
		UserID:    user.ID,
		Username:  user.Username,
		CSRFToken: session.CSRFToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	if err := s.db.DeleteSession(session.Token); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	session := sessionFrom(r.Context())
	s.writeJSON(w, http.StatusOK, SessionResponse{
		UserID:    user.ID,
		Username:  user.Username,
		CSRFToken: session.CSRFToken,
	})
}
