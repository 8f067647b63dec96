package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"welfareportal/internal"
	"welfareportal/internal/metrics"
	"welfareportal/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const contextKeyIdentity contextKey = "identity"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		elapsed := time.Since(started)
		route := routeLabel(r.URL.Path)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": elapsed.Milliseconds(),
		}).Info("http request")
	})
}

// routeLabel collapses id-like path segments so metric cardinality stays
// bounded.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/static/") {
		return "/static"
	}

	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if len(segment) > 20 || (segment != "" && strings.Trim(segment, "0123456789") == "") {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// Authenticate attaches the identity behind the access token cookie, if any,
// to the request context. Requests without a valid token continue anonymously.
func (s *Service) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		var accessToken string
		err = s.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &accessToken)
		if err != nil {
			s.logger.WithError(err).Warn("failed to decrypt access token")
			s.clearAccessTokenCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		identity, err := s.tokens.Verify(r.Context(), accessToken)
		if err != nil {
			s.logger.WithError(err).Info("access token rejected")
			s.clearAccessTokenCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": identity.UserID,
			"role":    identity.Role,
		}).Debug("authenticated user")

		ctx := context.WithValue(r.Context(), contextKeyIdentity, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth sends anonymous visitors to the login page and brings them back
// to where they were going afterwards.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFromContext(r.Context()).Authenticated() {
			target := r.URL.Path
			if r.Method != http.MethodGet {
				target = "/"
			}
			s.setRedirectCookie(w, target, time.Minute*5)
			s.redirectToLogin(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := identityFromContext(r.Context())
		if !identity.IsAdmin() {
			s.logger.WithField("user_id", identity.UserID).Info("non-admin denied access to admin route")
			s.renderError(w, r, http.StatusForbidden, "You do not have access to this page.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// identityFromContext returns the signed-in identity or an anonymous one.
func identityFromContext(ctx context.Context) *types.Identity {
	identity, ok := ctx.Value(contextKeyIdentity).(*types.Identity)
	if !ok || identity == nil {
		return &types.Identity{}
	}
	return identity
}
