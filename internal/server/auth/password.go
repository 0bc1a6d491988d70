package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

var bcryptCost = bcrypt.DefaultCost

// ValidatePassword enforces the local password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorInvalidArgument, MinPasswordLength)
	}
	return nil
}

func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %v", common.ErrorInvalidArgument, err)
		}
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash. An empty hash (a
// federated account) never matches.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
