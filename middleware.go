package satchel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const contextKey = "satchel.session"

// Middleware opens and starts a Session for every request and exposes it
// through FromContext. The session is persisted right before the response
// headers go out, or after the handler chain if nothing was written, so
// handlers must finish mutating it before writing a body.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		req := NewRequest(c.Request, m.trustedProxies)

		sess, err := m.Open(req, NewCookieWriter(c.Writer, m.cookieOptions()))
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to open session", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		if err := sess.Start(ctx); err != nil {
			if errors.Is(err, ErrRateLimited) {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				return
			}
			m.logger.ErrorContext(ctx, "failed to start session", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		w := &sessionWriter{ResponseWriter: c.Writer, sess: sess, ctx: ctx, logger: m.logger}
		c.Writer = w
		c.Set(contextKey, sess)

		c.Next()

		w.flush()
	}
}

// RequireValue aborts with 401 unless the session holds key in its current
// namespace.
func RequireValue(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := FromContext(c)
		if !ok || !sess.Data().Has(key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func FromContext(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}

// MustFromContext panics when Middleware did not run for c.
func MustFromContext(c *gin.Context) *Session {
	sess, ok := FromContext(c)
	if !ok {
		panic("satchel: session not found in context")
	}
	return sess
}

// sessionWriter stops the session once, before the first header write.
type sessionWriter struct {
	gin.ResponseWriter
	sess    *Session
	ctx     context.Context
	logger  *slog.Logger
	flushed bool
}

func (w *sessionWriter) flush() {
	if w.flushed {
		return
	}
	w.flushed = true

	if w.sess.Status() != StatusActive {
		return
	}
	if err := w.sess.Stop(w.ctx); err != nil {
		w.logger.ErrorContext(w.ctx, "failed to persist session", slog.String("error", err.Error()))
	}
}

func (w *sessionWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}
