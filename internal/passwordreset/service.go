package passwordreset

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/auth"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	resetDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/passwordreset"
	"github.com/trackifyhq/trackify/internal/sms"
)

const otpTTL = 10 * time.Minute

type Service struct {
	repo       Repository
	limiter    RateLimiter
	sms        sms.Backend
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, limiter RateLimiter, smsBackend sms.Backend, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		limiter:    limiter,
		sms:        smsBackend,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// RequestReset issues a fresh OTP and sends it by SMS. The response is the
// same whether or not the identifier matches an account, so the endpoint
// cannot be used to probe for usernames or phone numbers.
func (s *Service) RequestReset(ctx context.Context, dto RequestDTO, sourceIP string) (*RequestResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	generic := &RequestResponse{Message: "if the account exists, a verification code was sent to its phone"}

	allowed, err := s.limiter.Allow(ctx, "ip:"+orUnknown(sourceIP))
	if err != nil {
		s.logger.Error("rate limiter failure", "error", err)
		return nil, internal.NewInternalError("could not process the request", err)
	}
	if !allowed {
		return nil, internal.NewValidationError("too many verification codes requested, try again later", internal.ErrCodeOTPRateLimited)
	}

	user, err := s.findUser(dto.Identifier)
	if err != nil {
		s.logger.Info("password reset requested for unknown identifier", "source_ip", sourceIP)
		return generic, nil
	}
	if user.Phone == "" {
		s.logger.Warn("password reset requested for user without phone", "user_id", user.ID)
		return generic, nil
	}

	allowed, err = s.limiter.Allow(ctx, "tel:"+user.Phone)
	if err != nil {
		s.logger.Error("rate limiter failure", "error", err)
		return nil, internal.NewInternalError("could not process the request", err)
	}
	if !allowed {
		return nil, internal.NewValidationError("too many verification codes requested, try again later", internal.ErrCodeOTPRateLimited)
	}

	code, err := GenerateOTP()
	if err != nil {
		return nil, internal.NewInternalError("could not generate a verification code", err)
	}
	codeHash, err := auth.HashPassword(code, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("could not store the verification code", err)
	}

	if err := s.repo.InvalidateUnused(user.ID); err != nil {
		return nil, internal.NewInternalError("could not invalidate previous codes", err)
	}
	reset := &resetDatamodel.PasswordResetSMS{
		UserID:      user.ID,
		Phone:       user.Phone,
		CodeHash:    codeHash,
		ExpiresAt:   time.Now().Add(otpTTL),
		MaxAttempts: 5,
	}
	if err := s.repo.CreateReset(reset); err != nil {
		return nil, internal.NewInternalError("could not create the verification code", err)
	}

	message := fmt.Sprintf("Your Trackify verification code is %s. It expires in 10 minutes.", code)
	if err := s.sms.Send(ctx, user.Phone, message); err != nil {
		s.logger.Error("failed to send reset sms", "error", err, "user_id", user.ID)
		return nil, internal.NewInternalError("could not send the verification code", err)
	}

	s.logger.Info("password reset code issued", "user_id", user.ID)
	return &RequestResponse{
		Message:     generic.Message,
		MaskedPhone: MaskPhone(user.Phone),
	}, nil
}

// VerifyOTP checks the code without consuming it: the code stays valid
// until the password is actually changed. Only incorrect codes count
// against the attempt limit.
func (s *Service) VerifyOTP(ctx context.Context, dto VerifyDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	user, err := s.findUser(dto.Identifier)
	if err != nil {
		return internal.NewValidationFieldError("code", "incorrect code", internal.ErrCodeValidationFailed)
	}
	_, err = s.checkCode(user, dto.Code)
	return err
}

// SetPassword finishes the flow: re-verifies the code, stores the new
// password hash and marks the code used.
func (s *Service) SetPassword(ctx context.Context, dto SetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	user, err := s.findUser(dto.Identifier)
	if err != nil {
		return internal.NewValidationFieldError("code", "incorrect code", internal.ErrCodeValidationFailed)
	}
	reset, err := s.checkCode(user, dto.Code)
	if err != nil {
		return err
	}

	passwordHash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("could not store the new password", err)
	}
	if err := s.repo.UpdatePassword(user.ID, passwordHash); err != nil {
		return internal.NewInternalError("could not update the password", err)
	}

	reset.Used = true
	if err := s.repo.SaveReset(reset); err != nil {
		return internal.NewInternalError("could not consume the verification code", err)
	}

	s.logger.Info("password reset completed", "user_id", user.ID)
	return nil
}

func (s *Service) checkCode(user *identityDatamodel.User, code string) (*resetDatamodel.PasswordResetSMS, error) {
	reset, err := s.repo.LatestReset(user.ID)
	if err != nil {
		return nil, internal.NewValidationFieldError("code", "incorrect code", internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	if !reset.CanAttempt(now) {
		if reset.Attempts >= reset.MaxAttempts {
			return nil, internal.NewValidationError("too many incorrect attempts, request a new code", internal.ErrCodeOTPAttemptsExceed)
		}
		return nil, internal.NewValidationError("the code has expired, request a new one", internal.ErrCodeOTPExpired)
	}

	if auth.VerifyPassword(reset.CodeHash, strings.TrimSpace(code)) != nil {
		reset.Attempts++
		if err := s.repo.SaveReset(reset); err != nil {
			s.logger.Error("failed to record otp attempt", "error", err, "user_id", user.ID)
		}
		return nil, internal.NewValidationFieldError("code", "incorrect code", internal.ErrCodeValidationFailed)
	}
	return reset, nil
}

func (s *Service) findUser(identifier string) (*identityDatamodel.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.HasPrefix(identifier, "+") {
		return s.repo.FindUserByPhone(validation.NormalizePhone(identifier))
	}
	return s.repo.FindUserByUsername(identifier)
}

func orUnknown(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}
