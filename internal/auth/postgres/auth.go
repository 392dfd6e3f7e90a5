package auth

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal/authz"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetPasswordForUsername(username string) (string, int64, error) {
	var passwordHash string
	var userID int64
	query := `SELECT id, password_hash FROM users WHERE username = ? AND is_active = true`

	row := r.db.Raw(query, username).Row()
	if err := row.Scan(&userID, &passwordHash); err != nil {
		if err == sql.ErrNoRows {
			return "", 0, fmt.Errorf("user not found")
		}
		return "", 0, err
	}
	return passwordHash, userID, nil
}

// GetIdentity loads the authorization snapshot in one query. A user whose
// role row is gone resolves to an empty role name, which grants nothing.
func (r *Repository) GetIdentity(userID int64) (authz.Identity, error) {
	var identity authz.Identity
	var roleName sql.NullString
	var companyID sql.NullInt64
	var departmentID sql.NullInt64

	query := `SELECT u.id, u.company_id, u.department_id, u.is_superuser, COALESCE(r.name, '')
	          FROM users u
	          LEFT JOIN roles r ON r.id = u.role_id
	          WHERE u.id = ? AND u.is_active = true`

	row := r.db.Raw(query, userID).Row()
	if err := row.Scan(&identity.UserID, &companyID, &departmentID, &identity.IsSuperuser, &roleName); err != nil {
		if err == sql.ErrNoRows {
			return authz.Identity{}, fmt.Errorf("user not found")
		}
		return authz.Identity{}, err
	}

	if companyID.Valid {
		identity.CompanyID = companyID.Int64
	}
	if departmentID.Valid {
		identity.DepartmentID = &departmentID.Int64
	}
	identity.Role = authz.Role(roleName.String)
	return identity, nil
}
