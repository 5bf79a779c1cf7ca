package http

import (
	"fmt"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const rateLimitMessage = "You're browsing Sitewomen a bit too quickly. Please wait a moment and try again."

type middleware func(stdhttp.Handler) stdhttp.Handler

// chain wraps h so that the first middleware is the outermost.
func chain(h stdhttp.Handler, middlewares ...middleware) stdhttp.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// statusRecorder remembers the status code written by downstream handlers.
type statusRecorder struct {
	stdhttp.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(body []byte) (int, error) {
	if r.status == 0 {
		r.status = stdhttp.StatusOK
	}
	n, err := r.ResponseWriter.Write(body)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() stdhttp.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return stdhttp.StatusOK
	}
	return r.status
}

func recorderFor(w stdhttp.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

func (s *Server) requestIDMiddleware(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		reqID := uuid.NewString()
		ctx := withRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-ID", reqID)

		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rateLimitMiddleware(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIPFromRequest(r)
		if s.rateLimiter.Allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		if s.logger != nil {
			fields := requestFields(r.Context(), logrus.Fields{
				"ip":   ip,
				"path": r.URL.Path,
			})
			s.logger.WithError(eris.New("rate limit exceeded")).WithFields(fields).Warn("request rate limited")
		}

		w.Header().Set("Retry-After", "1")
		s.renderError(w, r, stdhttp.StatusTooManyRequests, rateLimitMessage)
	})
}

func (s *Server) loggingMiddleware(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if s.logger == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := recorderFor(w)
		next.ServeHTTP(rec, r)

		status := rec.Status()
		fields := requestFields(r.Context(), logrus.Fields{
			"method":      r.Method,
			"status":      status,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"bytes":       rec.bytes,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		})

		entry := s.logger.WithFields(fields)
		if status >= 500 {
			entry.Error("request failed")
		} else {
			entry.Info("request completed")
		}
	})
}

func (s *Server) recoveryMiddleware(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("panic: %v", v)
				}

				s.recordError(r.Context(), err, "panic recovered", logrus.Fields{"path": r.URL.Path})

				if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
					hub.RecoverWithContext(r.Context(), rec)
					hub.Flush(2 * time.Second)
				}

				s.renderError(w, r, stdhttp.StatusInternalServerError, errorFallbackMessage)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) sentryMiddleware(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if s.sentry == nil {
			next.ServeHTTP(w, r)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", r.Method)
		scope.SetRequest(r)

		ctx := sentry.SetHubOnContext(r.Context(), hub)
		defer hub.Flush(2 * time.Second)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIPFromRequest(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
