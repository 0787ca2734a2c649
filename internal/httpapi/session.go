package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

const sessionCookie = "gatehouse_session"

type ctxKey int

const operatorKey ctxKey = iota

// operatorFrom returns the username attached by requireSession.
func operatorFrom(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey).(string)
	return v
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := sessionToken(r)
		if tok == "" || s.sessions == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		claims, err := s.sessions.Validate(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "session invalid or expired")
			return
		}
		ctx := context.WithValue(r.Context(), operatorKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, "bad_json", "username and password are required")
		return
	}

	if err := s.operators.Authenticate(req.Username, req.Password); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error().Err(err).Msg("login error")
		}
		s.logger.Warn().
			Str("event", "login_rejected").
			Str("username", req.Username).
			Msg("operator login rejected")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}

	if s.sessions == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "sessions not configured")
		return
	}
	token, expiresAt, err := s.sessions.Issue(req.Username)
	if err != nil {
		s.logger.Error().Err(err).Msg("issue session")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	s.logger.Info().Str("event", "login").Str("username", req.Username).Msg("operator logged in")

	writeJSON(w, http.StatusOK, types.LoginResponse{
		Status:    "success",
		Username:  req.Username,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, types.StatusResponse{Status: "success", Message: "logged out"})
}
