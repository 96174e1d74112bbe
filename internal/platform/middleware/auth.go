package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "certwallet/pkg/domain-errors"
	"certwallet/pkg/platform/httputil"
)

// AdminTokenValidator checks a bearer token and returns its subject.
type AdminTokenValidator interface {
	ValidateAdminToken(token string) (string, error)
}

type contextKeyAdminSubject struct{}

// GetAdminSubject returns the authenticated admin, or "" outside admin routes.
func GetAdminSubject(ctx context.Context) string {
	subject, _ := ctx.Value(contextKeyAdminSubject{}).(string)
	return subject
}

// RequireAdmin rejects requests without a valid admin bearer token.
// Validator errors carrying a domain code (unauthorized, forbidden) are
// reported with that code; anything else becomes 401.
func RequireAdmin(validator AdminTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized admin access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			subject, err := validator.ValidateAdminToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized admin access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				if dErrors.HasCode(err, dErrors.CodeForbidden) {
					httputil.WriteError(w, err)
					return
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = context.WithValue(ctx, contextKeyAdminSubject{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
