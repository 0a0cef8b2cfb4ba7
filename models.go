package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest can view documents shared with them
	RoleGuest UserRole = "guest"
	// RoleMember can view and edit documents in their department
	RoleMember UserRole = "member"
	// RoleManager can distribute documents and manage their department
	RoleManager UserRole = "manager"
	// RoleAdmin can do everything including user management
	RoleAdmin UserRole = "admin"
)

// UserStatus is the lifecycle state of an account
type UserStatus = string

const (
	// UserStatusActive accounts can authenticate
	UserStatusActive UserStatus = "active"
	// UserStatusInactive accounts are locked out until reinstated
	UserStatusInactive UserStatus = "inactive"
	// UserStatusPending accounts have not completed onboarding
	UserStatusPending UserStatus = "pending"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status         UserStatus     `bun:"status,notnull" json:"status,omitempty"`
	FirstName      string         `bun:"first_name" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name" json:"last_name,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string         `bun:"phone_number" json:"phone_number,omitempty"`
	Department     string         `bun:"department" json:"department,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"password_hash,omitempty"`
	EmailValidated bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	ResetedAt      *time.Time     `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus defaults a zero status to active so legacy rows created
// before the status column keep authenticating.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

func statusAuthError(status UserStatus) error {
	switch status {
	case "", UserStatusActive:
		return nil
	default:
		return ErrInactiveAccount
	}
}
