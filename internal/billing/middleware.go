package billing

import (
	"log/slog"
	"net/http"

	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/transport"
)

// SubscriptionChecker is the predicate the gating middleware needs.
type SubscriptionChecker interface {
	SubscriptionActive(companyID int64) bool
}

// RequireActiveSubscription gates a route group on the tenant's
// subscription. Roles that can manage billing are redirected into checkout;
// everyone else gets a notice, since they cannot complete a payment flow.
// Superusers bypass the check.
func RequireActiveSubscription(checker SubscriptionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := authz.IdentityFromContext(r.Context())
			if !ok {
				base.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if actor.IsSuperuser {
				next.ServeHTTP(w, r)
				return
			}
			if checker.SubscriptionActive(actor.CompanyID) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Info("request blocked by inactive subscription",
				"company_id", actor.CompanyID, "user_id", actor.UserID, "path", r.URL.Path)

			if actor.Can(authz.CapManageBilling) {
				base.WriteRedirect(w, "/billing/checkout", "your company's subscription is inactive, complete the checkout to continue")
				return
			}
			base.WriteJSON(w, http.StatusOK, map[string]string{
				"notice": "your company's subscription is inactive, please contact your administrator",
			})
		})
	}
}
