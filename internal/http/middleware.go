package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
)

const (
	SessionCookie = "sf_session"
	SessionHeader = "X-Session-ID"

	sessionCookieMaxAge = 30 * 24 * time.Hour
)

type ctxKey int

const sessionIDKey ctxKey = iota

// SessionMiddleware resolves the browsing session from the cookie or the header, issuing a new
// id when neither carries a valid one.
func SessionMiddleware(secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					id = c.Value
				}
			}
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
			w.Header().Set(SessionHeader, id)

			ctx := context.WithValue(r.Context(), sessionIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// MaxBodyMiddleware caps request bodies.
func MaxBodyMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// language prefers ?lang= over the first Accept-Language tag.
func language(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		return domain.NormalizeLanguage(l)
	}
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return domain.NormalizeLanguage("")
	}
	first := strings.Split(accept, ",")[0]
	first = strings.TrimSpace(strings.Split(first, ";")[0])
	return domain.NormalizeLanguage(first)
}
