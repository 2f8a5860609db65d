package i18n

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Online Exam" {
		t.Errorf("T(AppTitle) = %q, want 'Online Exam'", got)
	}

	got = T(ctx, "StartExam")
	if got != "Start exam" {
		t.Errorf("T(StartExam) = %q, want 'Start exam'", got)
	}
}

func TestTranslateIndonesian(t *testing.T) {
	ctx := initLang(t, "id")

	tests := map[string]string{
		"AppTitle":      "Ujian Online",
		"UsernameTaken": "Username sudah digunakan.",
	}
	for id, want := range tests {
		if got := T(ctx, id); got != want {
			t.Errorf("T(%s) = %q, want %q", id, got, want)
		}
	}
	if got := T(ctx, "TimeUp"); !strings.HasPrefix(got, "Waktu ujian habis!") {
		t.Errorf("T(TimeUp) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsAvailable", 1)
	if got1 != "1 question available." {
		t.Errorf("Tp(QuestionsAvailable, 1) = %q, want '1 question available.'", got1)
	}

	got5 := Tp(ctx, "QuestionsAvailable", 5)
	if got5 != "5 questions available." {
		t.Errorf("Tp(QuestionsAvailable, 5) = %q, want '5 questions available.'", got5)
	}

	ctx = initLang(t, "id")
	if got := Tp(ctx, "QuestionsAvailable", 1); got != "1 soal tersedia." {
		t.Errorf("Tp(QuestionsAvailable, 1) in id = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "AlreadyDone", map[string]any{"Course": "AI"})
	if got != "You have already taken the AI exam." {
		t.Errorf("Td(AlreadyDone, Course=AI) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestInitUnsupported(t *testing.T) {
	if err := Init("fr"); err == nil {
		t.Error("Init(fr) should fail without a locale file")
	}
	if err := Init("not a tag!"); err == nil {
		t.Error("Init should reject an invalid tag")
	}
}

func TestLocalesHaveSameKeys(t *testing.T) {
	keys := func(name string) map[string]bool {
		data, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		out := make(map[string]bool, len(m))
		for k := range m {
			out[k] = true
		}
		return out
	}
	en, id := keys("en.json"), keys("id.json")
	for k := range en {
		if !id[k] {
			t.Errorf("id.json lacks %q", k)
		}
	}
	for k := range id {
		if !en[k] {
			t.Errorf("en.json lacks %q", k)
		}
	}
}

func TestMiddlewareNegotiation(t *testing.T) {
	if err := Init("id"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tests := []struct {
		name       string
		target     string
		cookie     string
		accept     string
		want       string
		wantCookie bool
	}{
		{"default", "/", "", "", "Ujian Online", false},
		{"accept header", "/", "", "en-US,en;q=0.9", "Online Exam", false},
		{"cookie beats header", "/", "id", "en-US", "Ujian Online", false},
		{"query beats cookie", "/?lang=en", "id", "", "Online Exam", true},
		{"unsupported query ignored", "/?lang=fr", "", "", "Ujian Online", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = T(r.Context(), "AppTitle")
			}))
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: LangCookie, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got != tt.want {
				t.Errorf("AppTitle = %q, want %q", got, tt.want)
			}
			hasCookie := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == LangCookie {
					hasCookie = true
				}
			}
			if hasCookie != tt.wantCookie {
				t.Errorf("lang cookie set = %v, want %v", hasCookie, tt.wantCookie)
			}
		})
	}
}
