package postgres

import (
	"gorm.io/gorm"

	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	resetDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/passwordreset"
	"github.com/trackifyhq/trackify/internal/passwordreset"
)

// PasswordResetRepository implements the passwordreset.Repository interface using GORM
type PasswordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) passwordreset.Repository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) FindUserByUsername(username string) (*identityDatamodel.User, error) {
	var u identityDatamodel.User
	err := r.db.Where("username = ? AND is_active = true", username).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PasswordResetRepository) FindUserByPhone(phone string) (*identityDatamodel.User, error) {
	var u identityDatamodel.User
	err := r.db.Where("phone = ? AND is_active = true", phone).
		Order("id ASC").
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PasswordResetRepository) InvalidateUnused(userID int64) error {
	return r.db.Model(&resetDatamodel.PasswordResetSMS{}).
		Where("user_id = ? AND used = false", userID).
		Update("used", true).Error
}

func (r *PasswordResetRepository) CreateReset(reset *resetDatamodel.PasswordResetSMS) error {
	return r.db.Create(reset).Error
}

func (r *PasswordResetRepository) LatestReset(userID int64) (*resetDatamodel.PasswordResetSMS, error) {
	var reset resetDatamodel.PasswordResetSMS
	err := r.db.Where("user_id = ? AND used = false", userID).
		Order("created_at DESC").
		First(&reset).Error
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) SaveReset(reset *resetDatamodel.PasswordResetSMS) error {
	return r.db.Save(reset).Error
}

func (r *PasswordResetRepository) UpdatePassword(userID int64, passwordHash string) error {
	return r.db.Model(&identityDatamodel.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash).Error
}
