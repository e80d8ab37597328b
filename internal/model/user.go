package model

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the stored identity record. PasswordHash never leaves the service layer.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleID       int64      `json:"role_id"`
	Role         string     `json:"role"`
	Team         *string    `json:"team,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AuthClaims is the identity carried by a session token. RoleID is a display
// hint only; authorization always re-resolves the role from the store.
type AuthClaims struct {
	UserID    int64
	Username  string
	Email     string
	RoleID    int64
	TokenID   string
	ExpiresAt time.Time
}

// Principal is the caller as resolved from the store on every guarded request.
type Principal struct {
	UserID      int64
	Username    string
	Email       string
	RoleID      int64
	Role        string
	Permissions []string
}

func (p Principal) HasPermission(name string) bool {
	for _, perm := range p.Permissions {
		if perm == name {
			return true
		}
	}
	return false
}

type AuthUser struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type LoginResult struct {
	User      AuthUser
	Token     string
	ExpiresAt time.Time
}

type UserList struct {
	Users []User `json:"users"`
}

// UserPatch carries the optional fields of an admin edit; nil leaves a column untouched.
// An empty Team clears the team.
type UserPatch struct {
	RoleID *int64
	Email  *string
	Team   *string
}
