package department

import (
	"log/slog"
	"strings"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
)

// Service handles department business logic
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

func (s *Service) Create(actor authz.Identity, dto CreateDepartmentDTO) (*tenantDatamodel.Department, error) {
	if !actor.Can(authz.CapManageDepartments) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage departments", "/", internal.ErrCodeUnauthorizedAccess)
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	name := validation.CollapseWhitespace(dto.Name)
	taken, err := s.repo.NameExists(actor.CompanyID, name, 0)
	if err != nil {
		return nil, internal.NewInternalError("failed to check department name", err)
	}
	if taken {
		return nil, internal.NewValidationFieldError("name", "a department with this name already exists", internal.ErrCodeDuplicateName)
	}

	dept := &tenantDatamodel.Department{
		CompanyID:   actor.CompanyID,
		Name:        name,
		Description: strings.TrimSpace(dto.Description),
	}
	if err := s.repo.Create(dept); err != nil {
		s.logger.Error("failed to create department", "error", err, "company_id", actor.CompanyID)
		return nil, internal.NewInternalError("failed to create department", err)
	}

	s.logger.Info("department created", "department_id", dept.ID, "company_id", actor.CompanyID)
	return dept, nil
}

func (s *Service) Get(actor authz.Identity, id int64) (*tenantDatamodel.Department, error) {
	dept, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !actor.Scope().SameTenant(dept.CompanyID) {
		return nil, internal.ErrDepartmentNotFound
	}
	return dept, nil
}

func (s *Service) List(actor authz.Identity) ([]*tenantDatamodel.Department, error) {
	return s.repo.ListByCompany(actor.CompanyID)
}

func (s *Service) Update(actor authz.Identity, id int64, dto UpdateDepartmentDTO) (*tenantDatamodel.Department, error) {
	if !actor.Can(authz.CapManageDepartments) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage departments", "/", internal.ErrCodeUnauthorizedAccess)
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	dept, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		name := validation.CollapseWhitespace(*dto.Name)
		taken, err := s.repo.NameExists(actor.CompanyID, name, dept.ID)
		if err != nil {
			return nil, internal.NewInternalError("failed to check department name", err)
		}
		if taken {
			return nil, internal.NewValidationFieldError("name", "a department with this name already exists", internal.ErrCodeDuplicateName)
		}
		dept.Name = name
	}
	if dto.Description != nil {
		dept.Description = strings.TrimSpace(*dto.Description)
	}

	if err := s.repo.Update(dept); err != nil {
		return nil, internal.NewInternalError("failed to update department", err)
	}
	return dept, nil
}

// Delete removes a department unless tasks still reference it.
func (s *Service) Delete(actor authz.Identity, id int64) error {
	if !actor.Can(authz.CapManageDepartments) {
		return internal.NewSoftDenyError("you do not have permission to manage departments", "/", internal.ErrCodeUnauthorizedAccess)
	}

	dept, err := s.Get(actor, id)
	if err != nil {
		return err
	}

	count, err := s.repo.TaskCount(dept.ID)
	if err != nil {
		return internal.NewInternalError("failed to count department tasks", err)
	}
	if count > 0 {
		return internal.ErrDepartmentInUse
	}

	if err := s.repo.Delete(dept.ID); err != nil {
		s.logger.Error("failed to delete department", "error", err, "department_id", id)
		return internal.NewInternalError("failed to delete department", err)
	}

	s.logger.Info("department deleted", "department_id", id, "deleted_by", actor.UserID)
	return nil
}
