package auth

import (
	"strings"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	"github.com/frahmantamala/leave-management/internal/core/common/validation"
	coreuser "github.com/frahmantamala/leave-management/internal/core/user"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordLength = 72

type RegisterDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (d *RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("email", d.Email).Required().Email().MaxLength(254)
	v.Field("password", d.Password).Required().MaxLength(maxPasswordLength)
	v.Field("role", d.Role).Custom(func(value interface{}) *internal.AppError {
		if _, ok := coreuser.ParseRole(value.(string)); !ok {
			return internal.NewValidationFieldError("role", "role must be one of: employee, admin", internal.ErrCodeInvalidRole)
		}
		return nil
	})
	return v.Validate()
}

// Normalize trims the name and canonicalizes the email. Call after Validate.
func (d *RegisterDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = coreuser.NormalizeEmail(d.Email)
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (d *LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required()
	v.Field("password", d.Password).Required()
	v.Field("role", d.Role).Required()
	return v.Validate()
}

type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      coreuser.Summary `json:"user"`
}

type RegisterResponse struct {
	Message string           `json:"message"`
	User    coreuser.Summary `json:"user"`
}
