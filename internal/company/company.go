package company

import (
	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
)

// RegisteredTenant is what self-registration produces: the company with its
// four role rows, the inactive subscription, and the first HR account.
type RegisteredTenant struct {
	Company      tenantDatamodel.Company
	Roles        []tenantDatamodel.Role
	Subscription billingDatamodel.Subscription
	HRUser       identityDatamodel.User
}

// SubscriptionDefaults seed the subscription row created for every new or
// newly referenced company.
type SubscriptionDefaults struct {
	Plan          string
	Currency      string
	MonthlyAmount int64
	AnnualAmount  int64
}

// Repository defines the data access methods for tenants
type Repository interface {
	// RegisterTenant creates company, roles, subscription and HR user in
	// one transaction. Partial registrations must never be visible.
	RegisterTenant(companyName string, hrUser *identityDatamodel.User, defaults SubscriptionDefaults) (*RegisteredTenant, error)
	GetByID(id int64) (*tenantDatamodel.Company, error)
	// EnsureSubscription get-or-creates the 1:1 subscription row.
	EnsureSubscription(companyID int64, defaults SubscriptionDefaults) (*billingDatamodel.Subscription, error)
	UsernameExists(username string) (bool, error)
}
