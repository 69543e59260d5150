package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/rentalhub/rentalhub-be/internal/auth"
	"github.com/rentalhub/rentalhub-be/internal/http/respond"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

type contextKey string

const actorContextKey contextKey = "actor"

// Protector wraps a handler so it only runs with a resolved actor in context.
type Protector func(http.HandlerFunc) http.HandlerFunc

// RequireActor builds a Protector that verifies the bearer token and resolves
// its {id, role} claim against the partition named by the role. A miss in
// that partition is an authentication failure; no other partition is tried.
func RequireActor(tokens *auth.TokenManager, actors storage.ActorStore) Protector {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respond.Error(w, http.StatusUnauthorized, "not authorized, no token")
				return
			}
			claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "not authorized, token failed")
				return
			}
			actor, err := actors.GetActor(r.Context(), claims.Role, claims.ActorID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					respond.Error(w, http.StatusUnauthorized, "not authorized, user not found")
					return
				}
				log.Printf("resolve actor: %v", err)
				respond.Error(w, http.StatusInternalServerError, "failed to resolve user")
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), actorContextKey, actor)))
		}
	}
}

// ActorFrom returns the authenticated actor stored by RequireActor.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(models.Actor)
	return actor, ok
}
