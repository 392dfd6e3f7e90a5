package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/trackifyhq/trackify/internal/authz"
)

// RequireCapability guards a route group behind a capability, running the
// tenant check first. Soft denies answer 303 with a redirect target the way
// the services do; hard denies keep their status. Most permission checks
// live in the services; this middleware covers routes without one.
func RequireCapability(capabilities ...authz.Capability) func(http.Handler) http.Handler {
	guards := []authz.Guard{authz.RequireTenant()}
	for _, c := range capabilities {
		guards = append(guards, authz.RequireCapability(c))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := authz.IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			decision := authz.Evaluate(actor, guards...)
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}

			slog.Warn("access denied",
				"user_id", actor.UserID,
				"role", string(actor.Role),
				"path", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			if decision.Effect == authz.EffectSoftDeny {
				w.Header().Set("Location", decision.RedirectTo)
				w.WriteHeader(http.StatusSeeOther)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"redirect_to": decision.RedirectTo,
					"message":     decision.Message,
				})
				return
			}

			w.WriteHeader(decision.Status)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"code":    decision.Status,
				"message": decision.Message,
			})
		})
	}
}
