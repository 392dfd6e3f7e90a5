package tenant

import "time"

// Company is the tenant root. Every business row in the system hangs off
// exactly one company.
type Company struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Company) TableName() string { return "companies" }

// Role rows are per company: registration creates the four conventional
// roles for each new tenant, they are never shared across tenants.
type Role struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CompanyID   int64     `gorm:"column:company_id;not null;uniqueIndex:idx_roles_company_name" json:"company_id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:idx_roles_company_name" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Role) TableName() string { return "roles" }

type Department struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CompanyID   int64     `gorm:"column:company_id;not null" json:"company_id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Department) TableName() string { return "departments" }
