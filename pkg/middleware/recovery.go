package middleware

import (
	apperrors "bookit/pkg/errors"
	httputil "bookit/pkg/http"
	"bookit/pkg/logger"
	"net/http"
	"runtime/debug"
)

func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					args := []any{
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					}
					if actor, ok := ActorFromContext(r.Context()); ok {
						args = append(args, "user_id", actor.UserID)
					}
					log.FromContext(r.Context()).Error("Panic recovered", args...)

					_ = httputil.WriteError(w, apperrors.Internal("Internal server error", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
