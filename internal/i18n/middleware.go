package i18n

import "net/http"

// LangCookie remembers the language picked with the lang query parameter.
const LangCookie = "lang"

// Middleware injects a localizer into every request context. The language
// comes from the lang query parameter, then the lang cookie, then the
// Accept-Language header, then the default passed to Init.
func Middleware(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var langs []string
			if q := r.URL.Query().Get("lang"); q != "" && Supported(q) {
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    q,
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
				langs = append(langs, q)
			}
			if c, err := r.Cookie(LangCookie); err == nil && c.Value != "" {
				langs = append(langs, c.Value)
			}
			if accept := r.Header.Get("Accept-Language"); accept != "" {
				langs = append(langs, accept)
			}
			ctx := WithLocalizer(r.Context(), NewLocalizer(langs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
