package usecase

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	temporaryPasswordLen = 16
	// no 0/O, 1/l/I: the password is read off a screen or an email
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

// GenerateTemporaryPassword returns a one-time admin password.
func GenerateTemporaryPassword() (string, error) {
	pw, err := randomString(passwordAlphabet, temporaryPasswordLen)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return pw, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// LoginURL fills the "{slug}" placeholder of the onboarding template.
func LoginURL(template, slug string) string {
	return strings.ReplaceAll(template, "{slug}", slug)
}
