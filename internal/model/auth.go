package model

import "time"

// Role is a closed set. Free-form role strings in claims invite
// typo-class privilege bugs, so everything outside the constants
// below is rejected at the boundary.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// ParseRole maps an incoming string to a Role, defaulting empty
// input to the least-privileged role.
func ParseRole(s string) (Role, bool) {
	if s == "" {
		return RoleUser, true
	}
	r := Role(s)
	return r, r.Valid()
}

type RegisterRequest struct {
	LoginID   string `json:"loginId"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type LoginRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
	Subject     string `json:"subject"`
	Role        Role   `json:"role"`
}

type AuthConfigResponse struct {
	AllowSignup bool `json:"allowSignup"`
}

// AuthUser is what the middleware attaches to the request context
// after token verification. It holds exactly what the token proves:
// the subject and its role.
type AuthUser struct {
	LoginID string
	Role    Role
}

type User struct {
	ID           int64
	LoginID      string
	PasswordHash string `json:"-"`
	Role         Role
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
