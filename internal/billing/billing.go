package billing

import (
	"context"

	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
	"github.com/trackifyhq/trackify/internal/mercadopago"
)

// Subscription states. Checkout moves Inactive to Paused; only the
// processor's webhook or a refresh moves it to Active.
const (
	StatusInactive  = "Inactive"
	StatusActive    = "Active"
	StatusPaused    = "Paused"
	StatusCancelled = "Cancelled"
	StatusError     = "Error"
)

const (
	CycleMonthly = "Monthly"
	CycleAnnual  = "Annual"
)

// IsActive is the single gating predicate: only the Active state unlocks
// the guarded surface.
func IsActive(sub *billingDatamodel.Subscription) bool {
	return sub != nil && sub.Status == StatusActive
}

// AmountForCycle returns the charge in minor currency units for a cycle.
func AmountForCycle(sub *billingDatamodel.Subscription, cycle string) int64 {
	if cycle == CycleAnnual {
		return sub.AnnualAmount
	}
	return sub.MonthlyAmount
}

// Repository defines the data access methods for subscriptions and the
// webhook audit tables.
type Repository interface {
	GetOrCreate(companyID int64) (*billingDatamodel.Subscription, error)
	Save(sub *billingDatamodel.Subscription) error
	FindByPreapprovalID(preapprovalID string) (*billingDatamodel.Subscription, error)
	FindByPayerEmail(payerEmail string) (*billingDatamodel.Subscription, error)
	LogEvent(ev *billingDatamodel.BillingEvent) error
	DeadLetter(dl *billingDatamodel.BillingDeadLetter) error
	CompanyName(companyID int64) (string, error)
}

// Gateway is the processor surface the service needs; satisfied by
// *mercadopago.Client.
type Gateway interface {
	CreatePlan(ctx context.Context, params mercadopago.PlanParams) (*mercadopago.Plan, error)
	GetPreapproval(ctx context.Context, preapprovalID string) (*mercadopago.Preapproval, error)
	SearchByPlan(ctx context.Context, planID string, limit int) ([]mercadopago.Preapproval, error)
	SearchAll(ctx context.Context, limit, offset int) ([]mercadopago.Preapproval, error)
}
