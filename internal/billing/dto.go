package billing

import (
	"time"

	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
)

type CheckoutDTO struct {
	Cycle string `json:"cycle,omitempty"`
}

// NormalizedCycle folds the requested cycle to a known value, defaulting to
// the subscription's current one.
func (d CheckoutDTO) NormalizedCycle(current string) string {
	switch d.Cycle {
	case CycleMonthly, CycleAnnual:
		return d.Cycle
	}
	if current == CycleAnnual {
		return CycleAnnual
	}
	return CycleMonthly
}

type CheckoutResponse struct {
	InitPoint string `json:"init_point"`
	Message   string `json:"message"`
}

type SubscriptionResponse struct {
	Plan          string     `json:"plan"`
	Cycle         string     `json:"cycle"`
	Currency      string     `json:"currency"`
	MonthlyAmount int64      `json:"monthly_amount"`
	AnnualAmount  int64      `json:"annual_amount"`
	Status        string     `json:"status"`
	IsActive      bool       `json:"is_active"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	NextBillingAt *time.Time `json:"next_billing_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func ToResponse(sub *billingDatamodel.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		Plan:          sub.Plan,
		Cycle:         sub.Cycle,
		Currency:      sub.Currency,
		MonthlyAmount: sub.MonthlyAmount,
		AnnualAmount:  sub.AnnualAmount,
		Status:        sub.Status,
		IsActive:      IsActive(sub),
		StartedAt:     sub.StartedAt,
		NextBillingAt: sub.NextBillingAt,
		CancelledAt:   sub.CancelledAt,
	}
}

// webhookBody is the notification envelope; the preapproval id may arrive
// nested under data or at the top level.
type webhookBody struct {
	ID   interface{} `json:"id"`
	Data struct {
		ID interface{} `json:"id"`
	} `json:"data"`
}
