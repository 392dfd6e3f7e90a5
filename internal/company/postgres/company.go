package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/company"
	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
)

// CompanyRepository implements the company.Repository interface using GORM
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) company.Repository {
	return &CompanyRepository{db: db}
}

var tenantRoleNames = []authz.Role{
	authz.RoleHR,
	authz.RoleManager,
	authz.RoleSupervisor,
	authz.RoleWorker,
}

// RegisterTenant creates the company, its four roles, the inactive
// subscription and the HR user in a single transaction.
func (r *CompanyRepository) RegisterTenant(companyName string, hrUser *identityDatamodel.User, defaults company.SubscriptionDefaults) (*company.RegisteredTenant, error) {
	var registered company.RegisteredTenant

	err := r.db.Transaction(func(tx *gorm.DB) error {
		comp := tenantDatamodel.Company{Name: companyName}
		if err := tx.Create(&comp).Error; err != nil {
			return err
		}

		roles := make([]tenantDatamodel.Role, 0, len(tenantRoleNames))
		var hrRoleID int64
		for _, name := range tenantRoleNames {
			role := tenantDatamodel.Role{CompanyID: comp.ID, Name: string(name)}
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
			if name == authz.RoleHR {
				hrRoleID = role.ID
			}
			roles = append(roles, role)
		}

		sub := billingDatamodel.Subscription{
			CompanyID:     comp.ID,
			Plan:          defaults.Plan,
			Currency:      defaults.Currency,
			MonthlyAmount: defaults.MonthlyAmount,
			AnnualAmount:  defaults.AnnualAmount,
			Status:        "Inactive",
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}

		hrUser.CompanyID = comp.ID
		hrUser.RoleID = &hrRoleID
		if err := tx.Create(hrUser).Error; err != nil {
			return err
		}

		registered = company.RegisteredTenant{
			Company:      comp,
			Roles:        roles,
			Subscription: sub,
			HRUser:       *hrUser,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &registered, nil
}

func (r *CompanyRepository) GetByID(id int64) (*tenantDatamodel.Company, error) {
	var comp tenantDatamodel.Company
	err := r.db.Where("id = ?", id).First(&comp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrCompanyNotFound
		}
		return nil, err
	}
	return &comp, nil
}

// EnsureSubscription get-or-creates the 1:1 subscription row for a company.
func (r *CompanyRepository) EnsureSubscription(companyID int64, defaults company.SubscriptionDefaults) (*billingDatamodel.Subscription, error) {
	var sub billingDatamodel.Subscription
	err := r.db.Where("company_id = ?", companyID).First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub = billingDatamodel.Subscription{
		CompanyID:     companyID,
		Plan:          defaults.Plan,
		Currency:      defaults.Currency,
		MonthlyAmount: defaults.MonthlyAmount,
		AnnualAmount:  defaults.AnnualAmount,
		Status:        "Inactive",
	}
	if err := r.db.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *CompanyRepository) UsernameExists(username string) (bool, error) {
	var count int64
	err := r.db.Model(&identityDatamodel.User{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}
