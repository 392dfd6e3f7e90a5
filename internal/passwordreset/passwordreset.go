package passwordreset

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	resetDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/passwordreset"
)

// Repository defines the data access methods for the SMS reset flow.
type Repository interface {
	FindUserByUsername(username string) (*identityDatamodel.User, error)
	FindUserByPhone(phone string) (*identityDatamodel.User, error)
	// InvalidateUnused marks every unused code for the user as used, so
	// only the newest issued code can ever verify.
	InvalidateUnused(userID int64) error
	CreateReset(r *resetDatamodel.PasswordResetSMS) error
	// LatestReset returns the most recently issued unused code.
	LatestReset(userID int64) (*resetDatamodel.PasswordResetSMS, error)
	SaveReset(r *resetDatamodel.PasswordResetSMS) error
	UpdatePassword(userID int64, passwordHash string) error
}

const otpLength = 6

// GenerateOTP produces a zero-padded numeric code from a CSPRNG.
func GenerateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpLength, n), nil
}

// MaskPhone keeps the prefix and last two digits visible, enough for the
// user to recognize their number without exposing it.
func MaskPhone(phone string) string {
	if len(phone) <= 6 {
		return phone
	}
	return phone[:4] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-2:]
}
