package passwordreset

import (
	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
)

// RequestDTO starts the flow; the identifier is a username or an E.164
// phone number.
type RequestDTO struct {
	Identifier string `json:"identifier"`
}

func (d RequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("identifier", d.Identifier).Required()
	return v.Validate()
}

type VerifyDTO struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

func (d VerifyDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("identifier", d.Identifier).Required()
	v.Field("code", d.Code).Required().MinLength(otpLength).MaxLength(otpLength)
	return v.Validate()
}

type SetPasswordDTO struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (d SetPasswordDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("identifier", d.Identifier).Required()
	v.Field("code", d.Code).Required().MinLength(otpLength).MaxLength(otpLength)
	v.Field("new_password", d.NewPassword).Required().MinLength(8)
	return v.Validate()
}

type RequestResponse struct {
	Message     string `json:"message"`
	MaskedPhone string `json:"masked_phone,omitempty"`
}
