package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when an account does not exist so that
// unknown emails cost the same as wrong passwords.
var (
	dummyHash     []byte
	dummyHashOnce sync.Once
)

// HashPassword hashes a plaintext password. Costs outside bcrypt's range fall
// back to the library default.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// BurnPasswordCheck performs a throwaway comparison.
func BurnPasswordCheck(plain string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

// IsPasswordMismatch reports whether err is a plain wrong-password result.
func IsPasswordMismatch(err error) bool {
	return errors.Is(err, bcrypt.ErrMismatchedHashAndPassword)
}
