package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/trackifyhq/trackify/internal/auth"
	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/billing"
	"github.com/trackifyhq/trackify/internal/company"
	"github.com/trackifyhq/trackify/internal/department"
	"github.com/trackifyhq/trackify/internal/evaluation"
	"github.com/trackifyhq/trackify/internal/notification"
	"github.com/trackifyhq/trackify/internal/passwordreset"
	"github.com/trackifyhq/trackify/internal/report"
	"github.com/trackifyhq/trackify/internal/task"
	"github.com/trackifyhq/trackify/internal/transport/middleware"
	"github.com/trackifyhq/trackify/internal/transport/swagger"
	"github.com/trackifyhq/trackify/internal/user"
)

// Handlers groups every feature handler the router mounts.
type Handlers struct {
	Auth          *auth.Handler
	Company       *company.Handler
	User          *user.Handler
	Department    *department.Handler
	Task          *task.Handler
	Evaluation    *evaluation.Handler
	Notification  *notification.Handler
	Billing       *billing.Handler
	PasswordReset *passwordreset.Handler
	Report        *report.Handler
}

// RegisterAllRoutes mounts the API under /api/v1 plus the processor webhook
// at the root. Everything behind the auth middleware except billing and the
// billing return pages also requires an active subscription.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, subscriptions billing.SubscriptionChecker, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	// The payment processor posts here without auth; the handler always ACKs.
	if h.Billing != nil {
		router.Post("/webhooks/mercadopago", h.Billing.Webhook)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		// Self-service company signup
		if h.Company != nil {
			r.Post("/companies/register", h.Company.Register)
		}

		// SMS password reset, reachable without a session
		if h.PasswordReset != nil {
			r.Route("/password-reset", func(sr chi.Router) {
				sr.Post("/request", h.PasswordReset.Request)
				sr.Post("/verify", h.PasswordReset.Verify)
				sr.Post("/set-password", h.PasswordReset.SetPassword)
			})
		}

		// Return pages the payment processor redirects the browser to
		if h.Billing != nil {
			r.Get("/billing/success", h.Billing.Success)
			r.Get("/billing/failure", h.Billing.Failure)
			r.Get("/billing/pending", h.Billing.Pending)
		}

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.Me)
				pr.Put("/users/me", h.User.UpdateMe)
				pr.Put("/users/me/password", h.User.ChangePassword)
			}

			// Billing management stays reachable while the subscription is
			// inactive, otherwise nobody could pay.
			if h.Billing != nil {
				pr.Route("/billing", func(br chi.Router) {
					br.Get("/", h.Billing.Overview)
					br.Post("/checkout", h.Billing.Checkout)
					br.Post("/refresh", h.Billing.Refresh)
				})
			}

			pr.Group(func(sr chi.Router) {
				sr.Use(billing.RequireActiveSubscription(subscriptions, logger))

				if h.User != nil {
					sr.Route("/users", func(ur chi.Router) {
						ur.Get("/", h.User.List)
						ur.Get("/{id}", h.User.Get)

						ur.Group(func(mr chi.Router) {
							mr.Use(middleware.RequireCapability(authz.CapManageUsers))
							mr.Post("/", h.User.Create)
							mr.Put("/{id}", h.User.Update)
							mr.Delete("/{id}", h.User.Delete)
						})
					})
				}

				if h.Department != nil {
					sr.Route("/departments", func(dr chi.Router) {
						dr.Get("/", h.Department.List)
						dr.Get("/{id}", h.Department.Get)

						dr.Group(func(mr chi.Router) {
							mr.Use(middleware.RequireCapability(authz.CapManageDepartments))
							mr.Post("/", h.Department.Create)
							mr.Put("/{id}", h.Department.Update)
							mr.Delete("/{id}", h.Department.Delete)
						})
					})
				}

				if h.Task != nil {
					sr.Get("/my-tasks", h.Task.MyTasks)
					sr.Route("/tasks", func(tr chi.Router) {
						tr.Post("/", h.Task.Create)
						tr.Get("/", h.Task.List)
						tr.Get("/{id}", h.Task.Get)
						tr.Put("/{id}", h.Task.Update)
						tr.Patch("/{id}/status", h.Task.Transition)
						tr.Delete("/{id}", h.Task.Delete)
						tr.Get("/{id}/history", h.Task.History)
					})
				}

				if h.Evaluation != nil {
					sr.Get("/my-evaluations", h.Evaluation.MyEvaluations)
					sr.Route("/evaluations", func(er chi.Router) {
						er.Post("/", h.Evaluation.Create)
						er.Get("/", h.Evaluation.List)
						er.Get("/{id}", h.Evaluation.Get)
						er.Put("/{id}", h.Evaluation.Update)
						er.Delete("/{id}", h.Evaluation.Delete)
						er.Get("/{id}/history", h.Evaluation.History)
					})
				}

				if h.Notification != nil {
					sr.Route("/notifications", func(nr chi.Router) {
						nr.Get("/", h.Notification.List)
						nr.Post("/{id}/read", h.Notification.MarkRead)
						nr.Post("/read-all", h.Notification.MarkAllRead)
						nr.Delete("/", h.Notification.DeleteAll)
					})
				}

				if h.Report != nil {
					sr.Group(func(rr chi.Router) {
						rr.Use(middleware.RequireCapability(authz.CapExportReports))
						rr.Get("/reports/tasks/csv", h.Report.TasksCSV)
						rr.Get("/reports/evaluations/csv", h.Report.EvaluationsCSV)
					})
				}
			})
		})
	})
}
