package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// User represents a human principal with local credentials.
// Username and Email are both unique; password grants accept either.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                   string     `bun:"id,pk,type:uuid"`
	Username             string     `bun:"username,notnull,unique"`
	Email                string     `bun:"email,notnull,unique"`
	EmailConfirmed       bool       `bun:"email_confirmed,notnull,default:false"`
	PhoneNumber          string     `bun:"phone_number"`
	PhoneNumberConfirmed bool       `bun:"phone_number_confirmed,notnull,default:false"`
	FullName             string     `bun:"full_name"`
	PasswordHash         string     `bun:"password_hash"`  // bcrypt hash
	SecurityStamp        string     `bun:"security_stamp"` // rotated on credential changes
	TwoFactorEnabled     bool       `bun:"two_factor_enabled,notnull,default:false"`
	LockoutEnabled       bool       `bun:"lockout_enabled,notnull"`
	LockoutEnd           *time.Time `bun:"lockout_end"` // locked while in the future
	AccessFailedCount    int        `bun:"access_failed_count,notnull,default:0"`
	CreatedAt            time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt            time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt          *time.Time `bun:"last_login_at"`
	DisabledAt           *time.Time `bun:"disabled_at"`
}

// IsLockedOut reports whether the lockout window is still open at now.
func (u *User) IsLockedOut(now time.Time) bool {
	if u == nil || !u.LockoutEnabled || u.LockoutEnd == nil {
		return false
	}
	return u.LockoutEnd.After(now)
}

// Role is a named role (Admin, Doctor, Patient, ...).
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string    `bun:"id,pk,type:uuid"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// UserRole maps users to roles
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID     string    `bun:"user_id,pk,type:uuid"` // FK to users(id)
	RoleID     string    `bun:"role_id,pk,type:uuid"` // FK to roles(id)
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
}

// UserClaim is an ad-hoc claim stored against a user.
type UserClaim struct {
	bun.BaseModel `bun:"table:user_claims,alias:uc"`

	ID         int64  `bun:"id,pk,autoincrement"`
	UserID     string `bun:"user_id,notnull,type:uuid"` // FK to users(id)
	ClaimType  string `bun:"claim_type,notnull"`
	ClaimValue string `bun:"claim_value,notnull"`
}

// StringList is a JSON-encoded list of strings.
type StringList []string

// Scan implements sql.Scanner for reading from database
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan StringList: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer for writing to database
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Contains reports whether v is in the list.
func (l StringList) Contains(v string) bool {
	for _, item := range l {
		if item == v {
			return true
		}
	}
	return false
}

// Client is a registered OAuth application.
type Client struct {
	bun.BaseModel `bun:"table:oauth_clients,alias:oc"`

	ID               string     `bun:"id,pk,type:uuid"`
	ClientID         string     `bun:"client_id,notnull,unique"`
	ClientSecretHash string     `bun:"client_secret_hash"` // empty for public clients
	DisplayName      string     `bun:"display_name"`
	GrantTypes       StringList `bun:"grant_types,type:text,notnull"`
	Scopes           StringList `bun:"scopes,type:text,notnull"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	Disabled         bool       `bun:"disabled,notnull,default:false"`
}

// IsConfidential reports whether the client must present a secret.
func (c *Client) IsConfidential() bool {
	return c != nil && c.ClientSecretHash != ""
}

// RevokedJTI tracks revoked JWT tokens by their JTI claim for denylist-based revocation
type RevokedJTI struct {
	bun.BaseModel `bun:"table:revoked_jti,alias:rjti"`

	JTI       string    `bun:"jti,pk"`                                       // JWT ID (jti claim from token)
	Subject   string    `bun:"subject,notnull"`                              // sub claim - user id or client id
	Exp       time.Time `bun:"exp,notnull"`                                  // Token expiration time (for cleanup)
	RevokedAt time.Time `bun:"revoked_at,notnull,default:current_timestamp"` // When the token was revoked
}
