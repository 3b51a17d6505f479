package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

var LocaleKey = localeContextKey{}

const (
	LocaleZH = "zh"
	LocaleEN = "en"
)

var (
	supportedTags = []language.Tag{language.Chinese, language.English}
	localeMatcher = language.NewMatcher(supportedTags)
)

// Locale stores "zh" or "en" in the request context. X-Locale wins over
// Accept-Language; defaultLocale applies when neither matches.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	fallback := normalizeLocale(defaultLocale)
	if fallback == "" {
		fallback = LocaleZH
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, fallback)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			w.Header().Set("Content-Language", locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback string) string {
	if v := normalizeLocale(r.Header.Get("X-Locale")); v != "" {
		return v
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		tags, _, err := language.ParseAcceptLanguage(accept)
		if err == nil && len(tags) > 0 {
			if _, idx, confidence := localeMatcher.Match(tags...); confidence != language.No {
				return localeForIndex(idx)
			}
		}
	}
	return fallback
}

// normalizeLocale maps a single language tag onto a supported locale, or "".
func normalizeLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return ""
	}
	_, idx, confidence := localeMatcher.Match(tag)
	if confidence == language.No {
		return ""
	}
	return localeForIndex(idx)
}

func localeForIndex(idx int) string {
	if supportedTags[idx] == language.English {
		return LocaleEN
	}
	return LocaleZH
}

// LocaleFromContext returns the negotiated locale, "zh" when none is set.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return LocaleZH
}
