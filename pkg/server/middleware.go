package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/utils/logging"
)

// requestLogger attaches a request scoped logger to the context and logs
// each completed request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.Default().With(
			"request_id", uuid.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx := logging.With(r.Context(), logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("request completed",
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// loadSession resolves the session cookie. Invalid or expired cookies are
// cleared and the request continues anonymously.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		claims, err := s.tokens.parse(cookie.Value)
		if err != nil {
			logging.From(ctx).Debug("discarding session cookie", "error", err)
			s.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		sess, ok := s.sessions.get(claims.ID)
		if !ok {
			sess = s.sessions.restore(claims.ID, &model.User{
				ID:    model.UserID(claims.UID),
				Email: claims.Email,
			})
		}

		logger := logging.From(ctx).With("uid", sess.user.ID)
		ctx = logging.With(withSession(ctx, sess), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireLogin rejects anonymous requests. Pages render the login notice,
// other endpoints get a bare 401.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodGet {
			s.renderNotice(w, r, http.StatusUnauthorized, pageNotice{
				Title:  "Login required",
				Errors: []string{"You need to log in to access this page. Please go back to the main page."},
			})
			return
		}
		http.Error(w, "You need to log in", http.StatusUnauthorized)
	})
}
