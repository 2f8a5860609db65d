package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/pavelanni/ujian/internal/exam"
	"github.com/pavelanni/ujian/internal/handler/views"
	appI18n "github.com/pavelanni/ujian/internal/i18n"
	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/session"
)

// renderExam renders the attempt of s. The caller holds the session lock.
func (h *Handler) renderExam(w http.ResponseWriter, r *http.Request, s *session.Session, status int, notices ...views.Notice) {
	courses, err := h.courses()
	if err != nil {
		h.serverError(w, r, "failed to list courses", err)
		return
	}
	h.render(w, r, status, views.ExamPage(views.ExamView{
		Attempt:   s.Exam,
		Remaining: h.exams.Remaining(&s.Exam),
		Limit:     h.exams.Limit(),
		Courses:   courses,
		Notices:   notices,
	}))
}

func (h *Handler) examNotice(r *http.Request, kind views.NoticeKind, id string) views.Notice {
	return views.Notice{Kind: kind, Text: appI18n.T(r.Context(), id)}
}

func (h *Handler) handleExamPage(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Lock()
	defer s.Unlock()

	if err := h.exams.Tick(&s.Exam); err != nil && !errors.Is(err, exam.ErrFinished) {
		slog.Warn("tick failed", "username", s.User.Username, "error", err)
	}
	h.renderExam(w, r, s, http.StatusOK)
}

func (h *Handler) handleIdentity(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Lock()
	defer s.Unlock()

	id := model.Identity{
		Name:      r.FormValue("name"),
		StudentID: r.FormValue("student_id"),
		Class:     r.FormValue("class"),
		Course:    r.FormValue("course"),
	}

	if s.Exam.State != "" && s.Exam.State != exam.StateUnidentified {
		http.Redirect(w, r, "/exam", http.StatusSeeOther)
		return
	}

	courses, err := h.courses()
	if err != nil {
		h.serverError(w, r, "failed to list courses", err)
		return
	}
	if id.Course != "" && !slices.Contains(courses, id.Normalize().Course) {
		s.Exam.Identity = id.Normalize()
		h.renderExam(w, r, s, http.StatusUnprocessableEntity, h.examNotice(r, views.NoticeError, "CourseUnknown"))
		return
	}

	err = h.exams.Identify(&s.Exam, id)
	switch {
	case errors.Is(err, exam.ErrIncompleteIdentity):
		s.Exam.Identity = id.Normalize()
		h.renderExam(w, r, s, http.StatusUnprocessableEntity, h.examNotice(r, views.NoticeError, "IdentityIncomplete"))
		return
	case err != nil:
		http.Redirect(w, r, "/exam", http.StatusSeeOther)
		return
	}

	if s.Finished(s.Exam.Identity) {
		err = h.exams.Refuse(&s.Exam)
	} else {
		err = h.exams.Gate(&s.Exam)
	}
	if err != nil {
		slog.Error("failed to check previous attempt", "error", err)
		h.renderExam(w, r, s, http.StatusInternalServerError, h.examNotice(r, views.NoticeError, "StorageError"))
		return
	}
	http.Redirect(w, r, "/exam", http.StatusSeeOther)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Lock()
	defer s.Unlock()

	err := h.exams.Start(&s.Exam)
	switch {
	case errors.Is(err, exam.ErrNoQuestions):
		h.renderExam(w, r, s, http.StatusOK, h.examNotice(r, views.NoticeWarning, "NoQuestions"))
		return
	case errors.Is(err, exam.ErrUnexpectedEvent), errors.Is(err, exam.ErrFinished):
	case err != nil:
		slog.Error("failed to start exam", "error", err)
		h.renderExam(w, r, s, http.StatusInternalServerError, h.examNotice(r, views.NoticeError, "StorageError"))
		return
	}
	http.Redirect(w, r, "/exam", http.StatusSeeOther)
}

// handleAnswer stores one selection. It is called in the background by the
// exam page and answers without a body.
func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Lock()
	defer s.Unlock()

	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	err = h.exams.Select(&s.Exam, index, r.FormValue("label"))
	switch {
	case errors.Is(err, exam.ErrInvalidAnswer):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		http.Error(w, err.Error(), http.StatusConflict)
	case s.Exam.State != exam.StateInProgress:
		http.Error(w, string(s.Exam.State), http.StatusConflict)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSubmit applies the answers posted with the form, then grades.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Lock()
	defer s.Unlock()

	for i := range s.Exam.Answers {
		label := r.FormValue(fmt.Sprintf("q%d", i))
		if label == "" {
			continue
		}
		err := h.exams.Select(&s.Exam, i, label)
		if errors.Is(err, exam.ErrInvalidAnswer) {
			continue
		}
		if err != nil {
			break
		}
	}

	err := h.exams.Submit(&s.Exam)
	switch {
	case errors.Is(err, exam.ErrAlreadySubmitted):
		h.renderExam(w, r, s, http.StatusConflict, h.examNotice(r, views.NoticeWarning, "AlreadySubmitted"))
		return
	case errors.Is(err, exam.ErrUnexpectedEvent), errors.Is(err, exam.ErrFinished):
	case err != nil && s.Exam.State != exam.StateGraded:
		slog.Error("failed to submit exam", "error", err)
		h.renderExam(w, r, s, http.StatusInternalServerError, h.examNotice(r, views.NoticeError, "StorageError"))
		return
	}
	http.Redirect(w, r, "/exam", http.StatusSeeOther)
}

// handleReset lets the student pick another course once the current attempt
// has ended or before it has started. The identity is kept as a default.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())
	s.Lock()
	defer s.Unlock()

	if s.Exam.State.Terminal() || s.Exam.State == exam.StateIdentified {
		id := s.Exam.Identity
		id.Course = ""
		s.ResetExam()
		s.Exam.Identity = id
	}
	http.Redirect(w, r, "/exam", http.StatusSeeOther)
}
