package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
	"github.com/matzehuels/specsync/pkg/observability"
	"github.com/matzehuels/specsync/pkg/session"
)

type loggerKey struct{}

// loggerFrom returns the request-scoped logger installed by observe.
func loggerFrom(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// observe logs each request and reports it to the HTTP hooks under its
// route pattern, so /screens/abc and /screens/def share one label.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ctx := context.WithValue(r.Context(), loggerKey{}, logger)
		r = r.WithContext(ctx)

		hooks := observability.HTTP()
		hooks.OnRequest(ctx, r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		hooks.OnResponse(ctx, r.Method, route, status, elapsed)
		logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed)
	})
}

// recoverer turns a handler panic into a 500 response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				loggerFrom(r.Context()).Error("panic", "value", rec, "stack", string(debug.Stack()))
				writeError(w, r, apperrors.New(apperrors.ErrCodeInternal, "panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the caller's session from the bearer token or the
// sid cookie and stores it in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.noAuth {
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), session.MockLocal())))
			return
		}

		token := session.TokenFromRequest(r)
		if token == "" {
			writeError(w, r, apperrors.New(apperrors.ErrCodeUnauthorized, "missing session token"))
			return
		}
		sess, err := s.sessions.Get(r.Context(), token)
		if err != nil {
			writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "load session"))
			return
		}
		if sess == nil {
			writeError(w, r, apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found or expired"))
			return
		}
		if sess.IsExpired() {
			writeError(w, r, apperrors.New(apperrors.ErrCodeSessionExpired, "session expired"))
			return
		}

		ctx := session.WithSession(r.Context(), sess)
		ctx = context.WithValue(ctx, loggerKey{}, loggerFrom(ctx).With("user", sess.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// caller returns the session installed by authenticate.
func caller(r *http.Request) (*session.Session, error) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "no session")
	}
	return sess, nil
}
