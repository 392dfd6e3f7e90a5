package company

import (
	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
)

// RegisterCompanyDTO is the self-registration payload: the company plus its
// first HR account.
type RegisterCompanyDTO struct {
	CompanyName string `json:"company_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	RUT         string `json:"rut"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

func (d RegisterCompanyDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("company_name", d.CompanyName).Required().MaxLength(120)
	v.Field("first_name", d.FirstName).Required().MaxLength(60)
	v.Field("last_name", d.LastName).Required().MaxLength(60)
	v.Field("rut", d.RUT).Required().ValidRUT()
	v.Field("phone", d.Phone).Required().ValidPhone()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(40)
	v.Field("password", d.Password).Required().MinLength(8)
	return v.Validate()
}

// CompanyResponse is the JSON view of a registered tenant.
type CompanyResponse struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	SubscriptionStatus string `json:"subscription_status"`
	HRUserID           int64  `json:"hr_user_id"`
	HRUsername         string `json:"hr_username"`
}
