package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pavelanni/ujian/internal/auth"
	"github.com/pavelanni/ujian/internal/exam"
	"github.com/pavelanni/ujian/internal/handler/views"
	appI18n "github.com/pavelanni/ujian/internal/i18n"
	"github.com/pavelanni/ujian/internal/metrics"
	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/session"
	"github.com/pavelanni/ujian/internal/store"
)

// leaderboardSize is how many results the top lists show.
const leaderboardSize = 10

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	auth     *auth.Service
	exams    *exam.Service
	sessions *session.Manager
	config   model.ServerConfig
}

// New creates a new Handler.
func New(s *store.Store, sessions *session.Manager, cfg model.ServerConfig) *Handler {
	return &Handler{
		store:    s,
		auth:     auth.NewService(s),
		exams:    exam.NewService(s, s, cfg.ExamDuration),
		sessions: sessions,
		config:   cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.csrfMiddleware)
	r.Use(h.loadSession)

	r.Get("/", h.handleIndex)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.handleRegisterPage)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/leaderboard", h.handleLeaderboard)

		r.Route("/exam", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStudent))
			r.Get("/", h.handleExamPage)
			r.Post("/identity", h.handleIdentity)
			r.Post("/start", h.handleStart)
			r.Post("/answer", h.handleAnswer)
			r.Post("/submit", h.handleSubmit)
			r.Post("/reset", h.handleReset)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/", h.handleAdminResults)
			r.Post("/results/{id}/score", h.handleUpdateScore)
			r.Post("/results/{id}/delete", h.handleDeleteResult)
			r.Get("/stats", h.handleStats)
			r.Get("/top", h.handleTop)
			r.Get("/export", h.handleExport)
			r.Get("/questions", h.handleAdminQuestionsPage)
			r.Post("/questions/upload", h.handleUploadQuestions)
			r.Post("/questions", h.handleAddQuestion)
		})
	})
}

// Metrics records the duration of every request by route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequestDuration.
			WithLabelValues(path, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.QuestionCount()
	if err != nil {
		h.serverError(w, r, "failed to count questions", err)
		return
	}
	h.render(w, r, http.StatusOK, views.HomePage(count, views.Notice{}))
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.TopResults(leaderboardSize)
	if err != nil {
		h.serverError(w, r, "failed to list top results", err)
		return
	}
	h.render(w, r, http.StatusOK, views.LeaderboardPage(results))
}

// courses returns the configured courses followed by any other course that
// has questions.
func (h *Handler) courses() ([]string, error) {
	counts, err := h.store.CountQuestionsByCourse()
	if err != nil {
		return nil, err
	}
	out := slices.Clone(h.config.Courses)
	var extra []string
	for c := range counts {
		if !slices.Contains(out, c) {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	return append(out, extra...), nil
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// serverError logs err and answers with a translated generic message.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err, "path", r.URL.Path)
	http.Error(w, appI18n.T(r.Context(), "StorageError"), http.StatusInternalServerError)
}
