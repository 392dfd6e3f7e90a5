package user

import (
	"fmt"
	"strings"

	"github.com/trackifyhq/trackify/internal/core/common/validation"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
)

const emailDomain = "trackify.com"

// Repository defines the data access methods for tenant users
type Repository interface {
	Create(user *identityDatamodel.User) error
	GetByID(id int64) (*identityDatamodel.User, error)
	ListByCompany(companyID int64) ([]*identityDatamodel.User, error)
	Update(user *identityDatamodel.User) error
	Delete(id int64) error

	GetRole(roleID int64) (*tenantDatamodel.Role, error)
	GetDepartment(departmentID int64) (*tenantDatamodel.Department, error)

	UsernameExists(username string) (bool, error)
	EmailExists(email string) (bool, error)
	RUTExists(companyID int64, rut string, excludeUserID int64) (bool, error)
	PhoneExists(companyID int64, phone string, excludeUserID int64) (bool, error)
}

// GenerateUsername builds "first letter of last name + first name", lowercase
// and accent-free, adding a numeric suffix until it is free.
func GenerateUsername(firstName, lastName string, exists func(string) (bool, error)) (string, error) {
	base := validation.Slugify(lastName)
	if base != "" {
		base = base[:1]
	}
	base += validation.Slugify(firstName)
	if base == "" {
		base = "usuario"
	}

	candidate := base
	for n := 1; ; n++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, n)
	}
}

// GenerateEmail builds "first.last@trackify.com", suffixing the local part
// until it is free.
func GenerateEmail(firstName, lastName string, exists func(string) (bool, error)) (string, error) {
	left := validation.Slugify(firstName) + "." + validation.Slugify(lastName)

	candidate := left + "@" + emailDomain
	for n := 1; ; n++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d@%s", left, n, emailDomain)
	}
}

// GenerateInitialPassword is the welcome password handed to a new user:
// uppercase first-name initial, lowercase last-name initial, clean RUT.
func GenerateInitialPassword(firstName, lastName, rut string) string {
	n1 := "x"
	if s := validation.Slugify(firstName); s != "" {
		n1 = s[:1]
	}
	a1 := "x"
	if s := validation.Slugify(lastName); s != "" {
		a1 = s[:1]
	}
	return strings.ToUpper(n1) + a1 + validation.CleanRUT(rut)
}

// FullName renders the display name the UI uses for a user.
func FullName(u *identityDatamodel.User) string {
	parts := []string{u.FirstName, u.MiddleName, u.LastName, u.SecondLastName}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
