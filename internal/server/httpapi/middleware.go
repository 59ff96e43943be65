package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
)

const (
	msgUnauthorized = "unauthorized"
	msgForbidden    = "not permitted"
)

// requestLogger writes one line per request. Query strings and headers are
// left out so bearer tokens never reach the log.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get(common.AuthorizationHeaderName))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authenticate validates the bearer token and stores its claims on the
// request context. Every failure is a 401 with the same body; the reason
// only goes to the log and the rejection counter.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			s.metrics.TokenRejectionsTotal.WithLabelValues("Missing").Inc()
			s.unauthorized(w, r)
			return
		}

		claims, err := s.tokens.Validate(raw)
		if err != nil {
			reason := auth.ReasonOf(err)
			if reason == "" {
				reason = auth.ReasonMalformed
			}
			s.metrics.TokenRejectionsTotal.WithLabelValues(string(reason)).Inc()
			s.logger.Info(r.Context(), "token rejected",
				"reason", reason, "request_id", middleware.GetReqID(r.Context()))
			s.unauthorized(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// requireRole lets the request through only when the caller's role equals
// role exactly. The response never names the required role.
func (s *Server) requireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := auth.ClaimsFromContext(r.Context())

			err := auth.Authorize(claims, role)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, common.ErrorForbidden):
				s.logger.Info(r.Context(), "permission denied",
					"username", claims.Username(), "method", r.Method, "path", r.URL.Path)
				WriteMessage(w, r, s.logger, http.StatusForbidden, msgForbidden)
			default:
				s.unauthorized(w, r)
			}
		})
	}
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", common.BearerScheme+` realm="catalogkeeper"`)
	WriteMessage(w, r, s.logger, http.StatusUnauthorized, msgUnauthorized)
}
