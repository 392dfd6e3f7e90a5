package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal"
	taskDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/task"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
	"github.com/trackifyhq/trackify/internal/department"
)

// DepartmentRepository implements the department.Repository interface using GORM
type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.Repository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(dept *tenantDatamodel.Department) error {
	return r.db.Create(dept).Error
}

func (r *DepartmentRepository) GetByID(id int64) (*tenantDatamodel.Department, error) {
	var dept tenantDatamodel.Department
	err := r.db.Where("id = ?", id).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func (r *DepartmentRepository) ListByCompany(companyID int64) ([]*tenantDatamodel.Department, error) {
	var departments []*tenantDatamodel.Department
	err := r.db.Where("company_id = ?", companyID).
		Order("name ASC").
		Find(&departments).Error
	return departments, err
}

func (r *DepartmentRepository) Update(dept *tenantDatamodel.Department) error {
	return r.db.Save(dept).Error
}

func (r *DepartmentRepository) Delete(id int64) error {
	return r.db.Delete(&tenantDatamodel.Department{}, id).Error
}

func (r *DepartmentRepository) NameExists(companyID int64, name string, excludeID int64) (bool, error) {
	var count int64
	q := r.db.Model(&tenantDatamodel.Department{}).
		Where("company_id = ? AND LOWER(name) = LOWER(?)", companyID, name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *DepartmentRepository) TaskCount(departmentID int64) (int64, error) {
	var count int64
	err := r.db.Model(&taskDatamodel.Task{}).
		Where("department_id = ?", departmentID).
		Count(&count).Error
	return count, err
}
