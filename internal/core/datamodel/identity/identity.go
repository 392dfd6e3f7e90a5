package identity

import "time"

// User is a tenant-scoped account. CompanyID is required and immutable in
// practice; RoleID is nullable so users survive role deletion orphaned.
// DepartmentID is required by convention for Supervisor/Worker and forbidden
// for HR. RUT and phone are unique per company, not globally.
type User struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	CompanyID      int64      `gorm:"column:company_id;not null;uniqueIndex:idx_users_company_rut;uniqueIndex:idx_users_company_phone" json:"company_id"`
	RoleID         *int64     `gorm:"column:role_id" json:"role_id,omitempty"`
	DepartmentID   *int64     `gorm:"column:department_id" json:"department_id,omitempty"`
	Username       string     `gorm:"column:username;uniqueIndex;not null" json:"username"`
	Email          string     `gorm:"column:email;not null" json:"email"`
	FirstName      string     `gorm:"column:first_name;not null" json:"first_name"`
	MiddleName     string     `gorm:"column:middle_name" json:"middle_name,omitempty"`
	LastName       string     `gorm:"column:last_name;not null" json:"last_name"`
	SecondLastName string     `gorm:"column:second_last_name" json:"second_last_name,omitempty"`
	RUT            string     `gorm:"column:rut;not null;uniqueIndex:idx_users_company_rut" json:"rut"`
	Phone          string     `gorm:"column:phone;uniqueIndex:idx_users_company_phone" json:"phone"`
	PasswordHash   string     `gorm:"column:password_hash;not null" json:"-"`
	IsActive       bool       `gorm:"column:is_active;default:true" json:"is_active"`
	IsSuperuser    bool       `gorm:"column:is_superuser;default:false" json:"-"`
	LastLoginAt    *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }
