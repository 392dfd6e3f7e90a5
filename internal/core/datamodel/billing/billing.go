package billing

import (
	"encoding/json"
	"time"
)

// Subscription is 1:1 with a company and is get-or-created whenever the
// company is referenced, so every tenant always has a row.
type Subscription struct {
	ID            int64      `gorm:"primaryKey" json:"id"`
	CompanyID     int64      `gorm:"column:company_id;uniqueIndex;not null" json:"company_id"`
	Plan          string     `gorm:"column:plan;default:'Pro'" json:"plan"`
	Cycle         string     `gorm:"column:cycle;default:'Monthly'" json:"cycle"`
	Currency      string     `gorm:"column:currency;default:'CLP'" json:"currency"`
	MonthlyAmount int64      `gorm:"column:monthly_amount" json:"monthly_amount"`
	AnnualAmount  int64      `gorm:"column:annual_amount" json:"annual_amount"`
	Status        string     `gorm:"column:status;default:'Inactive'" json:"status"`
	PreapprovalID string     `gorm:"column:mp_preapproval_id" json:"mp_preapproval_id,omitempty"`
	PlanID        string     `gorm:"column:mp_plan_id" json:"mp_plan_id,omitempty"`
	PayerEmail    string     `gorm:"column:mp_payer_email" json:"mp_payer_email,omitempty"`
	StartedAt     *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	NextBillingAt *time.Time `gorm:"column:next_billing_at" json:"next_billing_at,omitempty"`
	CancelledAt   *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// BillingEvent logs every webhook delivery verbatim. Write-only: business
// logic never reads it back.
type BillingEvent struct {
	ID            int64          `gorm:"primaryKey" json:"id"`
	Type          string         `gorm:"column:type;not null" json:"type"`
	Payload       json.RawMessage `gorm:"column:payload;type:jsonb" json:"payload"`
	PreapprovalID string         `gorm:"column:preapproval_id;index" json:"preapproval_id,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (BillingEvent) TableName() string { return "billing_events" }

// BillingDeadLetter records webhook deliveries that were ACKed to the
// processor but failed internal processing, so monitoring can alert
// without relying on processor retries.
type BillingDeadLetter struct {
	ID            int64          `gorm:"primaryKey" json:"id"`
	PreapprovalID string         `gorm:"column:preapproval_id;index" json:"preapproval_id,omitempty"`
	Payload       json.RawMessage `gorm:"column:payload;type:jsonb" json:"payload"`
	Reason        string         `gorm:"column:reason;not null" json:"reason"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (BillingDeadLetter) TableName() string { return "billing_dead_letters" }
