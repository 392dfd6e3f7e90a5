package postgres

import (
	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal/billing"
	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
)

// BillingRepository implements the billing.Repository interface using GORM
type BillingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) billing.Repository {
	return &BillingRepository{db: db}
}

func (r *BillingRepository) GetOrCreate(companyID int64) (*billingDatamodel.Subscription, error) {
	var sub billingDatamodel.Subscription
	err := r.db.Where(billingDatamodel.Subscription{CompanyID: companyID}).
		Attrs(billingDatamodel.Subscription{Status: billing.StatusInactive}).
		FirstOrCreate(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *BillingRepository) Save(sub *billingDatamodel.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *BillingRepository) FindByPreapprovalID(preapprovalID string) (*billingDatamodel.Subscription, error) {
	var sub billingDatamodel.Subscription
	err := r.db.Where("mp_preapproval_id = ?", preapprovalID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *BillingRepository) FindByPayerEmail(payerEmail string) (*billingDatamodel.Subscription, error) {
	var sub billingDatamodel.Subscription
	err := r.db.Where("LOWER(mp_payer_email) = LOWER(?)", payerEmail).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *BillingRepository) LogEvent(ev *billingDatamodel.BillingEvent) error {
	return r.db.Create(ev).Error
}

func (r *BillingRepository) DeadLetter(dl *billingDatamodel.BillingDeadLetter) error {
	return r.db.Create(dl).Error
}

func (r *BillingRepository) CompanyName(companyID int64) (string, error) {
	var name string
	err := r.db.Raw(`SELECT name FROM companies WHERE id = ?`, companyID).Scan(&name).Error
	return name, err
}
