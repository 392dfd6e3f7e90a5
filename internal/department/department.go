package department

import (
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
)

// Repository defines the data access methods for departments
type Repository interface {
	Create(dept *tenantDatamodel.Department) error
	GetByID(id int64) (*tenantDatamodel.Department, error)
	ListByCompany(companyID int64) ([]*tenantDatamodel.Department, error)
	Update(dept *tenantDatamodel.Department) error
	Delete(id int64) error

	// NameExists matches case-insensitively within the company.
	NameExists(companyID int64, name string, excludeID int64) (bool, error)
	// TaskCount reports how many tasks still reference the department.
	TaskCount(departmentID int64) (int64, error)
}
