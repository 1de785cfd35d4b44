package middleware

import (
	"bookit/pkg/config"
	apperrors "bookit/pkg/errors"
	httputil "bookit/pkg/http"
	"bookit/pkg/logger"
	"bookit/pkg/model"
	"context"
	"net/http"
	"strings"
)

const (
	UserIDHeader         = "X-User-ID"
	OrganizationIDHeader = "X-Organization-ID"
	UserRoleHeader       = "X-User-Role"
)

type actorKey struct{}

// ContextWithActor attaches the caller identity to ctx.
func ContextWithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller attached by Authenticate.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(model.Actor)
	return actor, ok && !actor.IsZero()
}

// Authenticate resolves the caller from the identity headers set by the
// gateway. Requests without a user id or with an unknown role get 401.
func Authenticate(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := model.Actor{
				UserID:         strings.TrimSpace(r.Header.Get(UserIDHeader)),
				OrganizationID: strings.TrimSpace(r.Header.Get(OrganizationIDHeader)),
				Role:           config.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(UserRoleHeader)))),
			}
			if actor.Role == "" {
				actor.Role = config.RoleUser
			}

			if actor.UserID == "" || !actor.Role.IsValid() {
				log.FromContext(r.Context()).Warn("Rejected unauthenticated request",
					"path", r.URL.Path,
					"method", r.Method,
					"role", actor.Role,
				)
				if err := httputil.WriteError(w, apperrors.Unauthorized("Missing or invalid caller identity")); err != nil {
					log.Error("failed to write error response", "error", err)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}
