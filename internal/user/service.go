package user

import (
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/auth"
	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
)

// Service handles user management business logic
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateUser creates an account inside the actor's tenant. Username, email
// and initial password are generated when the form leaves them empty; the
// generated password is returned once so HR can hand it over.
func (s *Service) CreateUser(actor authz.Identity, dto CreateUserDTO) (*identityDatamodel.User, string, error) {
	if !actor.Can(authz.CapManageUsers) {
		return nil, "", internal.NewSoftDenyError("you do not have permission to manage users", "/", internal.ErrCodeUnauthorizedAccess)
	}
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	if err := s.checkRoleDepartment(actor, dto.RoleID, dto.DepartmentID); err != nil {
		return nil, "", err
	}

	cleanRUT := validation.CleanRUT(dto.RUT)
	phone := validation.NormalizePhone(dto.Phone)
	if err := s.checkUnique(actor.CompanyID, cleanRUT, phone, 0); err != nil {
		return nil, "", err
	}

	username := dto.Username
	if username == "" {
		var err error
		username, err = GenerateUsername(dto.FirstName, dto.LastName, s.repo.UsernameExists)
		if err != nil {
			return nil, "", internal.NewInternalError("failed to generate username", err)
		}
	} else {
		taken, err := s.repo.UsernameExists(username)
		if err != nil {
			return nil, "", internal.NewInternalError("failed to check username", err)
		}
		if taken {
			return nil, "", internal.NewValidationFieldError("username", "username is already taken", internal.ErrCodeValidationFailed)
		}
	}

	email := dto.Email
	if email == "" {
		var err error
		email, err = GenerateEmail(dto.FirstName, dto.LastName, s.repo.EmailExists)
		if err != nil {
			return nil, "", internal.NewInternalError("failed to generate email", err)
		}
	}

	password := dto.Password
	generatedPassword := ""
	if password == "" {
		password = GenerateInitialPassword(dto.FirstName, dto.LastName, dto.RUT)
		generatedPassword = password
	}
	passwordHash, err := auth.HashPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to hash password", err)
	}

	roleID := dto.RoleID
	newUser := &identityDatamodel.User{
		CompanyID:      actor.CompanyID,
		RoleID:         &roleID,
		DepartmentID:   dto.DepartmentID,
		Username:       username,
		Email:          email,
		FirstName:      dto.FirstName,
		MiddleName:     dto.MiddleName,
		LastName:       dto.LastName,
		SecondLastName: dto.SecondLastName,
		RUT:            cleanRUT,
		Phone:          phone,
		PasswordHash:   passwordHash,
		IsActive:       true,
	}

	if err := s.repo.Create(newUser); err != nil {
		s.logger.Error("failed to create user", "error", err, "company_id", actor.CompanyID)
		return nil, "", internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created",
		"user_id", newUser.ID,
		"company_id", actor.CompanyID,
		"created_by", actor.UserID)

	return newUser, generatedPassword, nil
}

// GetUser returns a user inside the actor's tenant.
func (s *Service) GetUser(actor authz.Identity, id int64) (*identityDatamodel.User, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !actor.Scope().SameTenant(u.CompanyID) {
		// Cross-tenant reads 404 rather than confirm the row exists.
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) ListUsers(actor authz.Identity) ([]*identityDatamodel.User, error) {
	if !actor.Can(authz.CapManageUsers) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage users", "/", internal.ErrCodeUnauthorizedAccess)
	}
	return s.repo.ListByCompany(actor.CompanyID)
}

// UpdateUser applies the changed fields with the same invariants as create.
func (s *Service) UpdateUser(actor authz.Identity, id int64, dto UpdateUserDTO) (*identityDatamodel.User, error) {
	if !actor.Can(authz.CapManageUsers) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage users", "/", internal.ErrCodeUnauthorizedAccess)
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.GetUser(actor, id)
	if err != nil {
		return nil, err
	}

	if dto.RoleID != nil || dto.DepartmentID != nil {
		roleID := int64(0)
		if dto.RoleID != nil {
			roleID = *dto.RoleID
		} else if u.RoleID != nil {
			roleID = *u.RoleID
		}
		departmentID := u.DepartmentID
		if dto.DepartmentID != nil {
			departmentID = dto.DepartmentID
		}
		if err := s.checkRoleDepartment(actor, roleID, departmentID); err != nil {
			return nil, err
		}
		if dto.RoleID != nil {
			u.RoleID = dto.RoleID
		}
		if dto.DepartmentID != nil {
			u.DepartmentID = dto.DepartmentID
		}
	}

	if dto.Phone != nil {
		phone := validation.NormalizePhone(*dto.Phone)
		if err := s.checkUnique(actor.CompanyID, "", phone, u.ID); err != nil {
			return nil, err
		}
		u.Phone = phone
	}
	if dto.Email != nil {
		u.Email = *dto.Email
	}
	if dto.FirstName != nil {
		u.FirstName = *dto.FirstName
	}
	if dto.MiddleName != nil {
		u.MiddleName = *dto.MiddleName
	}
	if dto.LastName != nil {
		u.LastName = *dto.LastName
	}
	if dto.SecondLastName != nil {
		u.SecondLastName = *dto.SecondLastName
	}
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	return u, nil
}

// DeleteUser removes an account. Deleting your own account is forbidden.
func (s *Service) DeleteUser(actor authz.Identity, id int64) error {
	if !actor.Can(authz.CapManageUsers) {
		return internal.NewSoftDenyError("you do not have permission to manage users", "/", internal.ErrCodeUnauthorizedAccess)
	}
	if actor.UserID == id {
		return internal.ErrSelfDeletion
	}

	if _, err := s.GetUser(actor, id); err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to delete user", err)
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", actor.UserID)
	return nil
}

// GetProfile returns the actor's own account.
func (s *Service) GetProfile(actor authz.Identity) (*identityDatamodel.User, error) {
	return s.repo.GetByID(actor.UserID)
}

// UpdateProfile lets a user change their own email and phone.
func (s *Service) UpdateProfile(actor authz.Identity, dto UpdateProfileDTO) (*identityDatamodel.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(actor.UserID)
	if err != nil {
		return nil, err
	}

	if dto.Phone != nil {
		phone := validation.NormalizePhone(*dto.Phone)
		if err := s.checkUnique(u.CompanyID, "", phone, u.ID); err != nil {
			return nil, err
		}
		u.Phone = phone
	}
	if dto.Email != nil {
		u.Email = *dto.Email
	}

	if err := s.repo.Update(u); err != nil {
		return nil, internal.NewInternalError("failed to update profile", err)
	}
	return u, nil
}

// ChangePassword lets an authenticated user replace their own password after
// proving they know the current one.
func (s *Service) ChangePassword(actor authz.Identity, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetByID(actor.UserID)
	if err != nil {
		return err
	}
	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		return internal.NewValidationFieldError("current_password", "current password is incorrect", internal.ErrCodeInvalidCredentials)
	}

	hash, err := auth.HashPassword(dto.NewPassword, bcrypt.DefaultCost)
	if err != nil {
		return internal.NewInternalError("failed to hash password", err)
	}
	u.PasswordHash = hash

	if err := s.repo.Update(u); err != nil {
		return internal.NewInternalError("failed to change password", err)
	}

	s.logger.Info("password changed", "user_id", u.ID)
	return nil
}

// RoleName resolves the display name for a user's role, empty when orphaned.
func (s *Service) RoleName(u *identityDatamodel.User) string {
	if u.RoleID == nil {
		return ""
	}
	role, err := s.repo.GetRole(*u.RoleID)
	if err != nil {
		return ""
	}
	return role.Name
}

// checkRoleDepartment enforces the role and department pairing rules:
// referenced rows must belong to the actor's company, Supervisor and Worker
// require a department, HR must not have one.
func (s *Service) checkRoleDepartment(actor authz.Identity, roleID int64, departmentID *int64) error {
	role, err := s.repo.GetRole(roleID)
	if err != nil {
		return internal.NewValidationFieldError("role_id", "role not found", internal.ErrCodeValidationFailed)
	}
	if !actor.Scope().SameTenant(role.CompanyID) {
		return internal.NewCrossTenantError("role_id")
	}

	switch authz.Role(role.Name) {
	case authz.RoleHR:
		if departmentID != nil {
			return internal.NewValidationFieldError("department_id", "HR users must not have a department", internal.ErrCodeDepartmentMismatch)
		}
	case authz.RoleSupervisor, authz.RoleWorker:
		if departmentID == nil {
			return internal.NewValidationFieldError("department_id", "this role requires a department", internal.ErrCodeDepartmentMismatch)
		}
	}

	if departmentID != nil {
		dept, err := s.repo.GetDepartment(*departmentID)
		if err != nil {
			return internal.NewValidationFieldError("department_id", "department not found", internal.ErrCodeValidationFailed)
		}
		if !actor.Scope().SameTenant(dept.CompanyID) {
			return internal.NewCrossTenantError("department_id")
		}
	}
	return nil
}

// checkUnique enforces per-company uniqueness of RUT and phone. Empty values
// skip their check.
func (s *Service) checkUnique(companyID int64, rut, phone string, excludeUserID int64) error {
	if rut != "" {
		taken, err := s.repo.RUTExists(companyID, rut, excludeUserID)
		if err != nil {
			return internal.NewInternalError("failed to check rut", err)
		}
		if taken {
			return internal.NewValidationFieldError("rut", "a user with this RUT already exists in your company", internal.ErrCodeDuplicateRUT)
		}
	}
	if phone != "" {
		taken, err := s.repo.PhoneExists(companyID, phone, excludeUserID)
		if err != nil {
			return internal.NewInternalError("failed to check phone", err)
		}
		if taken {
			return internal.NewValidationFieldError("phone", "a user with this phone already exists in your company", internal.ErrCodeDuplicatePhone)
		}
	}
	return nil
}
