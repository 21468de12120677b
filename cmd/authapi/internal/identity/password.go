package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	ErrPasswordTooShort    = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordNoDigit     = errors.New("password must contain a digit")
	ErrPasswordNoUppercase = errors.New("password must contain an uppercase letter")
	ErrPasswordBlank       = errors.New("password must not be blank")
)

// ValidatePassword enforces the account password policy: at least
// MinPasswordLength characters with a digit and an uppercase letter.
// Non-alphanumeric characters are allowed but not required.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return ErrPasswordBlank
	}
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	if !hasUpper {
		return ErrPasswordNoUppercase
	}
	return nil
}

// HashPassword validates password against the policy and returns its bcrypt hash.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// NewSecurityStamp returns a fresh stamp. Rotate it whenever credentials change.
func NewSecurityStamp() string {
	return uuid.NewString()
}
