package accounts

import (
	"errors"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"
)

var hashCostOverride atomic.Int32

// SetPasswordHashCost overrides the bcrypt cost used by HashPassword.
// A value of 0 restores the build default.
func SetPasswordHashCost(cost int) {
	if cost != 0 && (cost < bcrypt.MinCost || cost > bcrypt.MaxCost) {
		return
	}
	hashCostOverride.Store(int32(cost))
}

func hashCost() int {
	if cost := hashCostOverride.Load(); cost != 0 {
		return int(cost)
	}
	return passwordHashCost()
}

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), hashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
