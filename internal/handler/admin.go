package handler

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/ujian/internal/handler/views"
	appI18n "github.com/pavelanni/ujian/internal/i18n"
	"github.com/pavelanni/ujian/internal/metrics"
	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/sheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errScoreRange = errors.New("score must be between 0 and 100")

// adminNotices maps the notice query parameter set by admin redirects to
// the message shown on the results page.
var adminNotices = map[string]views.NoticeKind{
	"ScoreUpdated":   views.NoticeSuccess,
	"ResultDeleted":  views.NoticeSuccess,
	"ScoreInvalid":   views.NoticeError,
	"ResultNotFound": views.NoticeError,
}

// parseScore accepts a decimal score in [0, 100].
func parseScore(s string) (float64, error) {
	score, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse score: %w", err)
	}
	if math.IsNaN(score) || score < 0 || score > 100 {
		return 0, errScoreRange
	}
	return score, nil
}

func resultID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleAdminResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResults()
	if err != nil {
		h.serverError(w, r, "failed to list results", err)
		return
	}
	var notices []views.Notice
	key := r.URL.Query().Get("notice")
	if kind, ok := adminNotices[key]; ok {
		notices = append(notices, views.Notice{Kind: kind, Text: appI18n.T(r.Context(), key)})
	}
	h.render(w, r, http.StatusOK, views.AdminResultsPage(results, notices))
}

func (h *Handler) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	id, err := resultID(r)
	if err != nil {
		http.Error(w, "invalid result ID", http.StatusBadRequest)
		return
	}
	score, err := parseScore(r.FormValue("score"))
	if err != nil {
		http.Redirect(w, r, "/admin?notice=ScoreInvalid", http.StatusSeeOther)
		return
	}

	err = h.store.UpdateScore(id, score)
	if errors.Is(err, sql.ErrNoRows) {
		http.Redirect(w, r, "/admin?notice=ResultNotFound", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to update score", err)
		return
	}
	slog.Info("score updated", "id", id, "score", score)
	http.Redirect(w, r, "/admin?notice=ScoreUpdated", http.StatusSeeOther)
}

func (h *Handler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := resultID(r)
	if err != nil {
		http.Error(w, "invalid result ID", http.StatusBadRequest)
		return
	}

	err = h.store.DeleteResult(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Redirect(w, r, "/admin?notice=ResultNotFound", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to delete result", err)
		return
	}
	slog.Info("result deleted", "id", id)
	http.Redirect(w, r, "/admin?notice=ResultDeleted", http.StatusSeeOther)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	course := r.URL.Query().Get("course")
	averages, err := h.store.CourseAverages(course)
	if err != nil {
		h.serverError(w, r, "failed to compute averages", err)
		return
	}
	courses, err := h.store.ListResultCourses()
	if err != nil {
		h.serverError(w, r, "failed to list result courses", err)
		return
	}
	h.render(w, r, http.StatusOK, views.AdminStatsPage(averages, courses, course))
}

func (h *Handler) handleTop(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.TopResults(leaderboardSize)
	if err != nil {
		h.serverError(w, r, "failed to list top results", err)
		return
	}
	h.render(w, r, http.StatusOK, views.AdminTopPage(results))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResults()
	if err != nil {
		h.serverError(w, r, "failed to list results", err)
		return
	}
	var buf bytes.Buffer
	if err := sheet.WriteResults(&buf, results); err != nil {
		h.serverError(w, r, "failed to build workbook", err)
		return
	}

	filename := fmt.Sprintf("hasil_ujian_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to send workbook", "error", err)
	}
}

func (h *Handler) renderQuestions(w http.ResponseWriter, r *http.Request, status int, notices ...views.Notice) {
	counts, err := h.store.CountQuestionsByCourse()
	if err != nil {
		h.serverError(w, r, "failed to count questions", err)
		return
	}
	courses, err := h.courses()
	if err != nil {
		h.serverError(w, r, "failed to list courses", err)
		return
	}
	h.render(w, r, status, views.AdminQuestionsPage(counts, courses, notices))
}

func (h *Handler) handleAdminQuestionsPage(w http.ResponseWriter, r *http.Request) {
	h.renderQuestions(w, r, http.StatusOK)
}

func (h *Handler) handleUploadQuestions(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("questions_file")
	if err != nil {
		h.renderQuestions(w, r, http.StatusBadRequest, views.Notice{
			Kind: views.NoticeError,
			Text: appI18n.T(r.Context(), "NoFile"),
		})
		return
	}
	defer file.Close()

	questions, err := sheet.ParseQuestions(file)
	if err != nil {
		slog.Warn("rejected question upload", "filename", header.Filename, "error", err)
		h.renderQuestions(w, r, http.StatusUnprocessableEntity, views.Notice{
			Kind: views.NoticeError,
			Text: appI18n.Td(r.Context(), "UploadFailed", map[string]any{"Error": err.Error()}),
		})
		return
	}

	n, err := h.store.InsertQuestions(questions)
	if err != nil {
		slog.Error("failed to import questions", "filename", header.Filename, "error", err)
		h.renderQuestions(w, r, http.StatusInternalServerError, views.Notice{
			Kind: views.NoticeError,
			Text: appI18n.Td(r.Context(), "UploadFailed", map[string]any{"Error": err.Error()}),
		})
		return
	}
	metrics.QuestionsImported.Add(float64(n))
	slog.Info("uploaded questions via admin", "filename", header.Filename, "count", n)

	h.renderQuestions(w, r, http.StatusOK, views.Notice{
		Kind: views.NoticeSuccess,
		Text: appI18n.Td(r.Context(), "UploadSuccess", map[string]any{"Count": n}),
	})
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	field := func(name string) string { return strings.TrimSpace(r.FormValue(name)) }
	q := model.Question{
		Course:  field("course"),
		Prompt:  field("prompt"),
		Option1: field("option_1"),
		Option2: field("option_2"),
		Option3: field("option_3"),
		Option4: field("option_4"),
		Answer:  strings.ToUpper(field("answer")),
	}
	if err := q.Validate(); err != nil {
		h.renderQuestions(w, r, http.StatusUnprocessableEntity, views.Notice{
			Kind: views.NoticeError,
			Text: appI18n.T(r.Context(), "QuestionInvalid"),
		})
		return
	}

	if _, err := h.store.InsertQuestion(q); err != nil {
		h.serverError(w, r, "failed to insert question", err)
		return
	}
	metrics.QuestionsImported.Inc()
	h.renderQuestions(w, r, http.StatusOK, views.Notice{
		Kind: views.NoticeSuccess,
		Text: appI18n.T(r.Context(), "QuestionAdded"),
	})
}
