package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/ujian/internal/auth"
	"github.com/pavelanni/ujian/internal/handler/views"
	appI18n "github.com/pavelanni/ujian/internal/i18n"
	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/session"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
)

// maxBodySize bounds request bodies, question workbook uploads included.
const maxBodySize = 10 << 20

type sessionCtxKey struct{}

type expiredCtxKey struct{}

func sessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return s
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// csrfMiddleware implements double-submit cookies. The token is issued once
// per browser and kept, so pages that post in the background keep working.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(csrfCookieName)
		hasCookie := err == nil && cookie.Value != ""

		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			token := ""
			if hasCookie {
				token = cookie.Value
			} else {
				token, err = generateCSRFToken()
				if err != nil {
					slog.Error("failed to generate CSRF token", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false,
					Secure:   h.config.SecureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := model.ContextWithCSRFToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := parseForm(r); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				slog.Warn("request body too large", "path", r.URL.Path, "limit", tooLarge.Limit)
				http.Error(w, appI18n.T(r.Context(), "UploadTooLarge"), http.StatusRequestEntityTooLarge)
				return
			}
			slog.Warn("malformed form", "path", r.URL.Path, "error", err)
			http.Error(w, "malformed form", http.StatusBadRequest)
			return
		}
		if !hasCookie {
			slog.Warn("CSRF cookie missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		formToken := r.PostFormValue("csrf_token")
		if formToken == "" {
			slog.Warn("CSRF form token missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		if len(formToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch")
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		ctx := model.ContextWithCSRFToken(r.Context(), cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseForm reads a POST body, multipart or URL-encoded.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxBodySize)
	}
	return r.ParseForm()
}

// loadSession attaches the signed-in user, if any, to the request context.
// A session dropped for inactivity clears the cookie and is remembered so
// the login page can say why.
func (h *Handler) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		s, expired := h.sessions.Get(cookie.Value)
		if s == nil {
			h.clearSessionCookie(w)
			ctx := r.Context()
			if expired {
				ctx = context.WithValue(ctx, expiredCtxKey{}, true)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		user := s.User
		ctx := model.ContextWithUser(r.Context(), &user)
		ctx = context.WithValue(ctx, sessionCtxKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth is middleware that checks for a live session.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFromContext(r.Context()) == nil {
			h.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login"
	if expired, _ := r.Context().Value(expiredCtxKey{}).(bool); expired {
		target += "?expired=1"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	var n views.Notice
	if r.URL.Query().Get("expired") != "" {
		n = views.Notice{
			Kind: views.NoticeWarning,
			Text: appI18n.Td(r.Context(), "SessionExpired", map[string]any{"Minutes": int(h.sessions.IdleTimeout().Minutes())}),
		}
	}
	h.render(w, r, http.StatusOK, views.LoginPage(n))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Verify(r.FormValue("username"), r.FormValue("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.render(w, r, http.StatusUnauthorized, views.LoginPage(views.Notice{
			Kind: views.NoticeError,
			Text: appI18n.T(r.Context(), "LoginError"),
		}))
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to verify credentials", err)
		return
	}

	s, err := h.sessions.Create(*user)
	if err != nil {
		h.serverError(w, r, "failed to create session", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("user signed in", "username", user.Username, "role", user.Role)

	target := "/exam"
	if user.IsAdmin() {
		target = "/admin"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.RegisterPage(views.Notice{}))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	err := h.auth.Register(username, r.FormValue("password"))
	switch {
	case errors.Is(err, auth.ErrEmptyCredentials):
		h.render(w, r, http.StatusUnprocessableEntity, views.RegisterPage(views.Notice{
			Kind: views.NoticeError,
			Text: appI18n.T(r.Context(), "EmptyCredentials"),
		}))
		return
	case errors.Is(err, auth.ErrUsernameTaken):
		h.render(w, r, http.StatusConflict, views.RegisterPage(views.Notice{
			Kind: views.NoticeError,
			Text: appI18n.T(r.Context(), "UsernameTaken"),
		}))
		return
	case err != nil:
		h.serverError(w, r, "failed to register user", err)
		return
	}

	h.render(w, r, http.StatusOK, views.LoginPage(views.Notice{
		Kind: views.NoticeSuccess,
		Text: appI18n.T(r.Context(), "RegisterSuccess"),
	}))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s := sessionFromContext(r.Context()); s != nil {
		h.sessions.Delete(s.Token)
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
}
