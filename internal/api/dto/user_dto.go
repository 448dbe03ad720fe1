package dto

import (
	"time"

	"github.com/fieldops/workorder-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role,omitempty"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TwoFactorRequest payload.
type TwoFactorRequest struct {
	Enabled bool `json:"enabled"`
}

// AdminUpdateUserRequest payload.
type AdminUpdateUserRequest struct {
	Role   *domain.Role `json:"role"`
	Active *bool        `json:"active"`
}

// UserResponse is the wire form of a user. The password hash never leaves the
// service.
type UserResponse struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	Name             string      `json:"name"`
	Phone            string      `json:"phone"`
	Role             domain.Role `json:"role"`
	Active           bool        `json:"active"`
	IsStaff          bool        `json:"is_staff"`
	TwoFactorEnabled bool        `json:"two_factor_enabled"`
	CreatedAt        time.Time   `json:"created_at"`
}

// SessionResponse is returned from login.
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserFromDomain converts a domain user.
func UserFromDomain(user *domain.User) UserResponse {
	return UserResponse{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		Phone:            user.Phone,
		Role:             user.Role,
		Active:           user.Active,
		IsStaff:          user.IsStaff(),
		TwoFactorEnabled: user.TwoFactorEnabled,
		CreatedAt:        user.CreatedAt,
	}
}

// UsersFromDomain converts a slice of domain users.
func UsersFromDomain(users []domain.User) []UserResponse {
	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, UserFromDomain(&users[i]))
	}
	return result
}
