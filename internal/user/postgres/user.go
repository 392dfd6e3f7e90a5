package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
	"github.com/trackifyhq/trackify/internal/user"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *identityDatamodel.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id int64) (*identityDatamodel.User, error) {
	var u identityDatamodel.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListByCompany(companyID int64) ([]*identityDatamodel.User, error) {
	var users []*identityDatamodel.User
	err := r.db.Where("company_id = ?", companyID).
		Order("last_name ASC, first_name ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) Update(u *identityDatamodel.User) error {
	return r.db.Save(u).Error
}

func (r *UserRepository) Delete(id int64) error {
	return r.db.Delete(&identityDatamodel.User{}, id).Error
}

func (r *UserRepository) GetRole(roleID int64) (*tenantDatamodel.Role, error) {
	var role tenantDatamodel.Role
	err := r.db.Where("id = ?", roleID).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("role not found")
		}
		return nil, err
	}
	return &role, nil
}

func (r *UserRepository) GetDepartment(departmentID int64) (*tenantDatamodel.Department, error) {
	var dept tenantDatamodel.Department
	err := r.db.Where("id = ?", departmentID).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func (r *UserRepository) UsernameExists(username string) (bool, error) {
	var count int64
	err := r.db.Model(&identityDatamodel.User{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) EmailExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&identityDatamodel.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) RUTExists(companyID int64, rut string, excludeUserID int64) (bool, error) {
	var count int64
	q := r.db.Model(&identityDatamodel.User{}).
		Where("company_id = ? AND rut = ?", companyID, rut)
	if excludeUserID != 0 {
		q = q.Where("id <> ?", excludeUserID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) PhoneExists(companyID int64, phone string, excludeUserID int64) (bool, error) {
	var count int64
	q := r.db.Model(&identityDatamodel.User{}).
		Where("company_id = ? AND phone = ?", companyID, phone)
	if excludeUserID != 0 {
		q = q.Where("id <> ?", excludeUserID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}
