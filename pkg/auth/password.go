package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	TokenKeyLength = 32 // 256 bits
	MinPasswordLen = 10
	MaxPasswordLen = 72 // bcrypt ignores bytes beyond 72
)

// BcryptCost is a variable so tests can lower it.
var BcryptCost = 12

// ErrWeakPassword is returned by ValidatePassword. The message is generic;
// Reasons carries the individual failures for logging.
var ErrWeakPassword = errors.New("password does not meet requirements")

type PasswordValidationError struct {
	Reasons []string
}

func (e *PasswordValidationError) Error() string {
	return ErrWeakPassword.Error()
}

func (e *PasswordValidationError) Unwrap() error {
	return ErrWeakPassword
}

var commonPasswords = map[string]bool{
	"password123!": true,
	"password1234": true,
	"qwerty12345!": true,
	"welcome123!":  true,
	"admin123456!": true,
	"letmein1234!": true,
	"changeme123!": true,
	"dealership1!": true,
	"showroom123!": true,
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GenerateTokenKey returns a random per-account signing key component.
// Rotating it invalidates every token issued to the account.
func GenerateTokenKey() (string, error) {
	bytes := make([]byte, TokenKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes), nil
}

// ValidatePassword checks length and character classes for admin-managed accounts.
func ValidatePassword(password string) error {
	reasons := make([]string, 0)

	if len(password) < MinPasswordLen {
		reasons = append(reasons, fmt.Sprintf("shorter than %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		reasons = append(reasons, fmt.Sprintf("longer than %d bytes", MaxPasswordLen))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower {
		reasons = append(reasons, "needs upper and lower case letters")
	}
	if !hasDigit {
		reasons = append(reasons, "needs a digit")
	}
	if commonPasswords[strings.ToLower(password)] {
		reasons = append(reasons, "too common")
	}

	if len(reasons) > 0 {
		return &PasswordValidationError{Reasons: reasons}
	}
	return nil
}
