// Package views renders the HTML pages as templ components. The *_templ.go
// files are generated from the .templ sources.
package views

//go:generate templ generate

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/a-h/templ"

	"github.com/pavelanni/ujian/internal/exam"
	appI18n "github.com/pavelanni/ujian/internal/i18n"
	"github.com/pavelanni/ujian/internal/model"
)

// NoticeKind selects the styling of a Notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Notice is a one-off message shown at the top of a page.
type Notice struct {
	Kind NoticeKind
	Text string
}

func notice(kind NoticeKind, text string) []Notice {
	if text == "" {
		return nil
	}
	return []Notice{{Kind: kind, Text: text}}
}

// ExamView is everything the exam page needs for one request.
type ExamView struct {
	Attempt   exam.Attempt
	Remaining time.Duration
	Limit     time.Duration
	Courses   []string
	Notices   []Notice
}

func t(ctx context.Context, id string) string {
	return appI18n.T(ctx, id)
}

type navLink struct {
	Href  templ.SafeURL
	Label string
}

// navLinks returns the menu for the signed-in user, or nil for visitors.
func navLinks(user *model.User) []navLink {
	switch {
	case user == nil:
		return nil
	case user.IsAdmin():
		return []navLink{
			{"/admin", "NavResults"},
			{"/admin/stats", "NavStats"},
			{"/admin/top", "NavTop"},
			{"/admin/export", "NavExport"},
			{"/admin/questions", "NavQuestions"},
		}
	default:
		return []navLink{
			{"/exam", "NavExam"},
			{"/leaderboard", "NavLeaderboard"},
		}
	}
}

func pageTitle(ctx context.Context, title string) string {
	return title + " · " + t(ctx, "AppTitle")
}

func scoreText(score float64) string {
	return fmt.Sprintf("%.2f", score)
}

func resultAction(id int64, action string) templ.SafeURL {
	return templ.URL(fmt.Sprintf("/admin/results/%d/%s", id, action))
}

func timestamp(at time.Time) string {
	return at.Local().Format("2006-01-02 15:04:05")
}

func clock(d time.Duration) string {
	s := secondsLeft(d)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func secondsLeft(d time.Duration) int {
	return int(d.Round(time.Second).Seconds())
}

func answerName(i int) string {
	return fmt.Sprintf("q%d", i)
}

func optionName(i int) string {
	return fmt.Sprintf("option_%d", i+1)
}

func welcome(ctx context.Context, id model.Identity) string {
	return appI18n.Td(ctx, "Welcome", map[string]any{
		"Name":      id.Name,
		"StudentID": id.StudentID,
		"Class":     id.Class,
		"Course":    id.Course,
	})
}

func timeLimit(ctx context.Context, limit time.Duration) string {
	return appI18n.Td(ctx, "TimeLimit", map[string]any{"Minutes": int(limit.Minutes())})
}

func alreadyDone(ctx context.Context, course string) []Notice {
	return notice(NoticeWarning, appI18n.Td(ctx, "AlreadyDone", map[string]any{"Course": course}))
}

func scoreNotices(ctx context.Context, o *exam.Outcome) []Notice {
	notices := notice(NoticeSuccess, appI18n.Td(ctx, "YourScore", map[string]any{
		"Score":   scoreText(o.Score),
		"Correct": o.Correct,
		"Total":   o.Total,
	}))
	if !o.Saved {
		notices = append(notices, notice(NoticeError, t(ctx, "ResultNotSaved"))...)
	}
	return notices
}

func givenAnswer(r exam.Review) string {
	if r.Given == "" {
		return "-"
	}
	return r.Given
}

func reviewResult(r exam.Review) string {
	if r.Correct {
		return "correct"
	}
	return "wrong"
}

func sortedCourses(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	slices.Sort(names)
	return names
}
