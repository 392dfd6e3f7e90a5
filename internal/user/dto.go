package user

import (
	"time"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
)

// CreateUserDTO is the HR user-creation payload. Username, email and the
// initial password are generated when left empty.
type CreateUserDTO struct {
	FirstName      string `json:"first_name"`
	MiddleName     string `json:"middle_name,omitempty"`
	LastName       string `json:"last_name"`
	SecondLastName string `json:"second_last_name,omitempty"`
	RUT            string `json:"rut"`
	Phone          string `json:"phone"`
	RoleID         int64  `json:"role_id"`
	DepartmentID   *int64 `json:"department_id,omitempty"`
	Email          string `json:"email,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
}

func (d CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("first_name", d.FirstName).Required().MaxLength(50)
	v.Field("last_name", d.LastName).Required().MaxLength(50)
	v.Field("rut", d.RUT).Required().ValidRUT()
	v.Field("phone", d.Phone).Required().ValidPhone()
	v.Field("role_id", d.RoleID).Required()
	return v.Validate()
}

// UpdateUserDTO carries the editable fields; nil means unchanged.
type UpdateUserDTO struct {
	FirstName      *string `json:"first_name,omitempty"`
	MiddleName     *string `json:"middle_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	SecondLastName *string `json:"second_last_name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	RoleID         *int64  `json:"role_id,omitempty"`
	DepartmentID   *int64  `json:"department_id,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

func (d UpdateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Phone != nil {
		v.Field("phone", *d.Phone).ValidPhone()
	}
	if d.FirstName != nil {
		v.Field("first_name", *d.FirstName).Required().MaxLength(50)
	}
	if d.LastName != nil {
		v.Field("last_name", *d.LastName).Required().MaxLength(50)
	}
	return v.Validate()
}

// UpdateProfileDTO is what a user may change on their own account.
type UpdateProfileDTO struct {
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

func (d UpdateProfileDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Phone != nil {
		v.Field("phone", *d.Phone).ValidPhone()
	}
	return v.Validate()
}

// ChangePasswordDTO is the authenticated password change, requiring the
// current password before accepting the new one.
type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(8)
	return v.Validate()
}

type UserResponse struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	RUT          string    `json:"rut"`
	RUTFormatted string    `json:"rut_formatted"`
	Phone        string    `json:"phone"`
	RoleID       *int64    `json:"role_id,omitempty"`
	RoleName     string    `json:"role_name,omitempty"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreatedUserResponse additionally exposes the generated credentials, shown
// once to the HR user who created the account.
type CreatedUserResponse struct {
	UserResponse
	InitialPassword string `json:"initial_password,omitempty"`
}

func ToResponse(u *identityDatamodel.User, roleName string) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     FullName(u),
		RUT:          u.RUT,
		RUTFormatted: validation.FormatRUT(u.RUT),
		Phone:        u.Phone,
		RoleID:       u.RoleID,
		RoleName:     roleName,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}
