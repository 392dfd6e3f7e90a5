package company

import (
	"log/slog"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/auth"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
	"golang.org/x/crypto/bcrypt"
)

// Service handles tenant registration and lookup
type Service struct {
	repo     Repository
	defaults SubscriptionDefaults
	logger   *slog.Logger
}

func NewService(repo Repository, defaults SubscriptionDefaults, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		defaults: defaults,
		logger:   logger,
	}
}

// Register creates a new tenant from the self-registration form: company,
// the four conventional roles, an inactive subscription and the HR account,
// all in one transaction.
func (s *Service) Register(dto RegisterCompanyDTO) (*RegisteredTenant, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.UsernameExists(dto.Username)
	if err != nil {
		return nil, internal.NewInternalError("failed to check username", err)
	}
	if taken {
		return nil, internal.NewValidationFieldError("username", "username is already taken", internal.ErrCodeValidationFailed)
	}

	passwordHash, err := auth.HashPassword(dto.Password, bcrypt.DefaultCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	hrUser := &identityDatamodel.User{
		Username:     dto.Username,
		Email:        dto.Email,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		RUT:          validation.CleanRUT(dto.RUT),
		Phone:        validation.NormalizePhone(dto.Phone),
		PasswordHash: passwordHash,
		IsActive:     true,
	}

	registered, err := s.repo.RegisterTenant(dto.CompanyName, hrUser, s.defaults)
	if err != nil {
		s.logger.Error("tenant registration failed", "company", dto.CompanyName, "error", err)
		return nil, internal.NewInternalError("failed to register company", err)
	}

	s.logger.Info("company registered",
		"company_id", registered.Company.ID,
		"company", registered.Company.Name,
		"hr_user_id", registered.HRUser.ID)

	return registered, nil
}

// GetCompany returns a company and guarantees its subscription row exists.
func (s *Service) GetCompany(id int64) (*tenantDatamodel.Company, *billingDatamodel.Subscription, error) {
	company, err := s.repo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	sub, err := s.repo.EnsureSubscription(company.ID, s.defaults)
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to ensure subscription", err)
	}

	return company, sub, nil
}
