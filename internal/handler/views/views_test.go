package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/pavelanni/ujian/internal/exam"
	appI18n "github.com/pavelanni/ujian/internal/i18n"
	"github.com/pavelanni/ujian/internal/model"
)

func testContext(t *testing.T, user *model.User) context.Context {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("init i18n: %v", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer("en"))
	ctx = model.ContextWithCSRFToken(ctx, "tok123")
	if user != nil {
		ctx = model.ContextWithUser(ctx, user)
	}
	return ctx
}

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		t.Fatalf("render: %v", err)
	}
	return sb.String()
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body missing %q", w)
		}
	}
}

var sampleQuestions = []model.Question{
	{Course: "AI", Prompt: "Apa itu neuron?", Option1: "Sel", Option2: "Batu", Option3: "Air", Option4: "Api", Answer: "A"},
	{Course: "AI", Prompt: "2+2?", Option1: "3", Option2: "4", Option3: "5", Option4: "6", Answer: "B"},
}

func TestNavigationByRole(t *testing.T) {
	tests := []struct {
		name    string
		user    *model.User
		want    []string
		notWant []string
	}{
		{
			name:    "visitor",
			want:    []string{`href="/login"`, `href="/register"`},
			notWant: []string{`action="/logout"`, `href="/admin"`},
		},
		{
			name:    "student",
			user:    &model.User{Username: "budi", Role: model.UserRoleStudent},
			want:    []string{`href="/exam"`, `href="/leaderboard"`, `action="/logout"`, "<span>budi</span>"},
			notWant: []string{`href="/admin/stats"`, `href="/register"`},
		},
		{
			name:    "admin",
			user:    &model.User{Username: "root", Role: model.UserRoleAdmin},
			want:    []string{`href="/admin/stats"`, `href="/admin/top"`, `href="/admin/export"`, `href="/admin/questions"`},
			notWant: []string{`href="/leaderboard"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := render(t, testContext(t, tt.user), HomePage(3, Notice{}))
			assertContains(t, body, tt.want...)
			for _, nw := range tt.notWant {
				if strings.Contains(body, nw) {
					t.Errorf("body unexpectedly contains %q", nw)
				}
			}
		})
	}
}

func TestPageEscapesAndCSRF(t *testing.T) {
	ctx := testContext(t, &model.User{Username: "<b>x</b>", Role: model.UserRoleStudent})
	body := render(t, ctx, LoginPage(Notice{Kind: NoticeError, Text: "<script>"}))

	assertContains(t, body,
		"<!doctype html>",
		`<input type="hidden" name="csrf_token" value="tok123">`,
		`<div class="notice" data-kind="error">&lt;script&gt;</div>`,
		"<span>&lt;b&gt;x&lt;/b&gt;</span>",
	)
	if strings.Contains(body, `data-kind=""`) {
		t.Error("empty notice rendered")
	}
}

func TestExamPageStates(t *testing.T) {
	id := model.Identity{Name: "Budi Santoso", StudentID: "123", Class: "TI-1", Course: "AI"}
	tests := []struct {
		name string
		view ExamView
		want []string
	}{
		{
			name: "unidentified keeps entered values",
			view: ExamView{
				Attempt: exam.Attempt{State: exam.StateUnidentified, Identity: id},
				Courses: []string{"AI", "Jaringan"},
			},
			want: []string{
				`action="/exam/identity"`,
				`name="name" value="Budi Santoso" required`,
				`<option value="AI" selected>AI</option>`,
				`<option value="Jaringan">Jaringan</option>`,
			},
		},
		{
			name: "identified",
			view: ExamView{Attempt: exam.Attempt{State: exam.StateIdentified, Identity: id}, Limit: 30 * time.Minute},
			want: []string{"Hello Budi Santoso (123, class TI-1). Course: AI.", `action="/exam/start"`},
		},
		{
			name: "in progress",
			view: ExamView{
				Attempt: exam.Attempt{
					State:     exam.StateInProgress,
					Identity:  id,
					Questions: sampleQuestions,
					Answers:   []string{"", "B"},
				},
				Remaining: 90 * time.Second,
			},
			want: []string{
				`<span id="timer" data-seconds="90">01:30</span>`,
				"<b>1.</b> Apa itu neuron?",
				`name="q1" value="B" data-index="1" checked>`,
				`name="q0" value="A" data-index="0">`,
				"A. Sel",
				`fetch("/exam/answer"`,
			},
		},
		{
			name: "graded but not saved",
			view: ExamView{Attempt: exam.Attempt{
				State:    exam.StateGraded,
				Identity: id,
				Outcome: &exam.Outcome{
					Score: 50, Correct: 1, Total: 2,
					Reviews: []exam.Review{
						{Question: sampleQuestions[0], Given: "", Correct: false},
						{Question: sampleQuestions[1], Given: "B", Correct: true},
					},
				},
			}},
			want: []string{
				"Your score: 50.00 (1 of 2 correct).",
				"Your result could not be saved.",
				`<td data-result="wrong">-</td>`,
				`<td data-result="correct">B</td>`,
				`action="/exam/reset"`,
			},
		},
		{
			name: "timed out",
			view: ExamView{Attempt: exam.Attempt{State: exam.StateTimedOut, Identity: id}},
			want: []string{"Time is up!", `action="/exam/reset"`},
		},
		{
			name: "already done",
			view: ExamView{Attempt: exam.Attempt{State: exam.StateAlreadyDone, Identity: id}},
			want: []string{"You have already taken the AI exam.", `data-kind="warning"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t, &model.User{Username: "budi", Role: model.UserRoleStudent})
			assertContains(t, render(t, ctx, ExamPage(tt.view)), tt.want...)
		})
	}
}

func TestAdminPages(t *testing.T) {
	ctx := testContext(t, &model.User{Username: "root", Role: model.UserRoleAdmin})
	results := []model.Result{{ID: 7, Name: "Budi", StudentID: "123", Course: "AI", Score: 88.5, Time: time.Now()}}

	body := render(t, ctx, AdminResultsPage(results, nil))
	assertContains(t, body,
		`action="/admin/results/7/score"`,
		`value="88.50"`,
		`action="/admin/results/7/delete"`,
		`data-confirm="Delete this result?"`,
	)

	body = render(t, ctx, AdminTopPage(results))
	if strings.Contains(body, "/admin/results/7/score") {
		t.Error("top page must not be editable")
	}
	assertContains(t, body, "<td>88.50</td>")

	body = render(t, ctx, AdminStatsPage([]model.CourseAverage{{Course: "AI", Average: 72.25, Count: 4}}, []string{"AI", "Jaringan"}, "Jaringan"))
	assertContains(t, body,
		`<option value="Jaringan" selected>Jaringan</option>`,
		"<td>72.25</td>",
		"<td>4</td>",
		`<meter min="0" max="100" value="72.25">`,
	)

	body = render(t, ctx, AdminQuestionsPage(map[string]int{"Jaringan": 1, "AI": 2}, []string{"AI"}, nil))
	if strings.Index(body, "<td>AI</td>") > strings.Index(body, "<td>Jaringan</td>") {
		t.Error("question counts are not sorted by course")
	}
	assertContains(t, body, `name="option_4"`, `enctype="multipart/form-data"`, `<option value="D">D</option>`)
}

func TestEmptyResults(t *testing.T) {
	body := render(t, testContext(t, nil), LeaderboardPage(nil))
	assertContains(t, body, "No results yet.")
	if strings.Contains(body, "<table>") {
		t.Error("empty leaderboard rendered a table")
	}
}
